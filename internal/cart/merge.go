package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/gateway"
	"github.com/storefront-next/internal/metrics"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/notify"
	"github.com/storefront-next/internal/queue"
)

// 合并结果
const (
	MergeOutcomeMerged  = "merged"
	MergeOutcomePartial = "partial"
	MergeOutcomeFailed  = "failed"
	MergeOutcomeSkipped = "skipped"
	MergeOutcomeEmpty   = "empty"
)

// MergeReport 登录合并结果
type MergeReport struct {
	Outcome   string
	Attempted int
	Merged    int
	Failures  []queue.MergeFailure
}

// merge 登录后合并匿名购物车
// 远端已有商品时以远端为准并丢弃本地；远端为空时逐行回放本地商品
func (s *Session) merge(ctx context.Context, localLines []models.LineItem) error {
	remote, ok := s.backend.(*RemoteBackend)
	if !ok {
		return nil
	}

	remoteLines, err := remote.Load(ctx)
	if err != nil {
		s.mu.Lock()
		s.mergePending = true
		s.pendingMerge = localLines
		s.mu.Unlock()
		metrics.ObserveMerge(MergeOutcomeFailed)
		s.log().Warnw("cart_merge_fetch_failed",
			"pending_lines", len(localLines),
			"error", err,
		)
		s.notify(ctx, constants.NoticeLevelWarning, notify.KeyMergeFailed,
			gateway.UserMessage(err, "We could not load your saved cart. We will try again shortly."))
		return err
	}

	s.mu.Lock()
	s.mergePending = false
	s.pendingMerge = nil
	s.mu.Unlock()

	report := MergeReport{}
	switch {
	case len(remoteLines) > 0:
		report.Outcome = MergeOutcomeSkipped
		s.local.Discard(ctx)
		s.adopt(remoteLines)
		if len(localLines) > 0 {
			s.notify(ctx, constants.NoticeLevelInfo, notify.KeyMergeSkipped, "Your saved cart was restored.")
		}
	case len(localLines) == 0:
		report.Outcome = MergeOutcomeEmpty
		s.adopt(remoteLines)
	default:
		final := s.replay(ctx, remote, localLines, &report)
		s.local.Discard(ctx)
		s.adopt(final)
		s.notifyMerge(ctx, report)
	}

	s.recordMerge(report, len(localLines) > 0)
	return nil
}

// replay 按原顺序逐行写入远端，单行失败不影响其他行
func (s *Session) replay(ctx context.Context, remote *RemoteBackend, localLines []models.LineItem, report *MergeReport) []models.LineItem {
	var last *models.CartSnapshot
	for _, line := range localLines {
		report.Attempted++
		snapshot, err := remote.gateway.AddLine(ctx, line.ProductID, line.Quantity)
		if err != nil {
			s.log().Warnw("cart_merge_line_failed",
				"product_id", line.ProductID,
				"quantity", line.Quantity,
				"error", err,
			)
			report.Failures = append(report.Failures, queue.MergeFailure{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Error:     err.Error(),
			})
			continue
		}
		report.Merged++
		last = snapshot
	}

	switch {
	case report.Merged == 0:
		report.Outcome = MergeOutcomeFailed
	case len(report.Failures) > 0:
		report.Outcome = MergeOutcomePartial
	default:
		report.Outcome = MergeOutcomeMerged
	}

	final, err := remote.Load(ctx)
	if err == nil {
		return final
	}
	s.log().Warnw("cart_merge_refetch_failed", "error", err)
	return remote.adopt(ctx, last)
}

func (s *Session) notifyMerge(ctx context.Context, report MergeReport) {
	switch report.Outcome {
	case MergeOutcomeMerged:
		s.notify(ctx, constants.NoticeLevelSuccess, notify.KeyMergeCompleted, "Items from this device were added to your cart.")
	default:
		ids := make([]string, 0, len(report.Failures))
		for _, failure := range report.Failures {
			ids = append(ids, failure.ProductID)
		}
		s.notify(ctx, constants.NoticeLevelWarning, notify.KeyMergePartial,
			fmt.Sprintf("Some items could not be added to your cart: %s.", strings.Join(ids, ", ")))
	}
}

func (s *Session) recordMerge(report MergeReport, hadLocal bool) {
	metrics.ObserveMerge(report.Outcome)
	s.log().Infow("cart_merge_finished",
		"outcome", report.Outcome,
		"attempted", report.Attempted,
		"merged", report.Merged,
		"failed", len(report.Failures),
	)
	if !hadLocal {
		return
	}
	err := s.deps.Queue.EnqueueCartMergeReport(queue.CartMergeReportPayload{
		SessionID:  s.id,
		UserID:     s.identity.UserID,
		Outcome:    report.Outcome,
		Attempted:  report.Attempted,
		Merged:     report.Merged,
		Failures:   report.Failures,
		OccurredAt: time.Now().Unix(),
	})
	if err != nil {
		s.log().Warnw("cart_merge_report_enqueue_failed", "error", err)
	}
}
