package classify

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// batchChunkSize 每批并发分类的交易数，受解读服务限流约束
	batchChunkSize = 3
	// batchChunkDelay 批次之间的间隔
	batchChunkDelay = 500 * time.Millisecond
)

// ClassifyBatch 按签名顺序分类一组交易
// 分批并发，批间限速；单笔失败降级为 Generic，不影响其它交易
func (c *Classifier) ClassifyBatch(ctx context.Context, wallet string, signatures []string) []*Classification {
	results := make([]*Classification, len(signatures))

	for start := 0; start < len(signatures); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(signatures) {
			end = len(signatures)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			group.Go(func() error {
				results[i] = c.Classify(groupCtx, wallet, signatures[i])
				return nil
			})
		}
		// Classify 从不返回错误，Wait 只用于等待本批完成
		_ = group.Wait()

		if end < len(signatures) {
			select {
			case <-ctx.Done():
				for i := end; i < len(signatures); i++ {
					results[i] = &Classification{
						Signature: signatures[i],
						Type:      TypeGeneric,
						Summary:   defaultSummary,
						Action:    ActionOther,
					}
				}
				return results
			case <-time.After(batchChunkDelay):
			}
		}
	}
	return results
}
