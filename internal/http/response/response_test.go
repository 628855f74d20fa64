package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorAttachesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	ErrorWithData(c, CodeConflict, "not enough stock", gin.H{"notices": []string{}})

	if w.Code != http.StatusOK {
		t.Fatalf("envelope errors should use http 200, got %d", w.Code)
	}
	var resp struct {
		StatusCode int                    `json:"status_code"`
		Msg        string                 `json:"msg"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.StatusCode != CodeConflict || resp.Msg != "not enough stock" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Data["request_id"] != "req-1" {
		t.Fatalf("request id missing: %+v", resp.Data)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(CodeInternal, "cart update failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("app error should unwrap to cause")
	}
	if err.Error() != "cart update failed: boom" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestAsAppErrorAndRetryable(t *testing.T) {
	upstream := WrapError(CodeBadGateway, "cart service unavailable", errors.New("dial tcp"))
	wrapped := fmt.Errorf("add item: %w", upstream)

	appErr, ok := AsAppError(wrapped)
	if !ok || appErr.Code != CodeBadGateway {
		t.Fatalf("expected app error in chain, got %v", appErr)
	}
	if !appErr.Retryable() {
		t.Fatalf("bad gateway should be retryable")
	}
	if WrapError(CodeBadRequest, "bad quantity", nil).Retryable() {
		t.Fatalf("validation errors are not retryable")
	}
	if _, ok := AsAppError(errors.New("plain")); ok {
		t.Fatalf("plain error is not an app error")
	}
}
