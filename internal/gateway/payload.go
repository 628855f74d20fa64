package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storefront-next/internal/models"
)

// envelope 统一响应包装
type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type cartPayload struct {
	ID    flexString    `json:"id"`
	Items []itemPayload `json:"items"`
	Total flexPrice     `json:"total"`
}

type itemPayload struct {
	ID            flexString `json:"id"`
	ProductID     flexString `json:"product_id"`
	Name          string     `json:"name"`
	UnitPrice     flexPrice  `json:"unit_price"`
	OriginalPrice *flexPrice `json:"original_price"`
	Quantity      int        `json:"quantity"`
	ImageURL      string     `json:"image_url"`
	Category      string     `json:"category"`
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

// flexString 兼容数字或字符串形式的 ID
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("unsupported id value %s", string(b))
	}
	*s = flexString(n.String())
	return nil
}

// flexPrice 兼容数字、数字字符串与 {"valor": n} 三种价格格式
type flexPrice struct {
	models.Money
}

func (p *flexPrice) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		raw, ok := wrapped["valor"]
		if !ok {
			return fmt.Errorf("price object missing valor: %s", string(b))
		}
		return p.UnmarshalJSON(raw)
	}
	return p.Money.UnmarshalJSON(b)
}

// toSnapshot 转换为领域快照，原价缺失或低于现价时按现价处理
func (c *cartPayload) toSnapshot() *models.CartSnapshot {
	snapshot := &models.CartSnapshot{
		ID:    string(c.ID),
		Lines: make([]models.LineItem, 0, len(c.Items)),
		Total: c.Total.Money,
	}
	for _, item := range c.Items {
		line := models.LineItem{
			ProductID:         string(item.ProductID),
			Name:              item.Name,
			ImageURL:          item.ImageURL,
			CategoryLabel:     item.Category,
			UnitPrice:         item.UnitPrice.Money,
			OriginalUnitPrice: item.UnitPrice.Money,
			Quantity:          item.Quantity,
			RemoteLineID:      string(item.ID),
		}
		if item.OriginalPrice != nil {
			line.OriginalUnitPrice = item.OriginalPrice.Money
		}
		line.Normalize()
		snapshot.Lines = append(snapshot.Lines, line)
	}
	return snapshot
}
