package forecast

import (
	"context"
	"log"
	"sort"
	"time"

	"smart-sales-forecast/internal/domain/dataset"
	domain "smart-sales-forecast/internal/domain/forecast"
)

// RegionInput 描述依地區彙總預測的請求；Records 為清理後的紀錄。
type RegionInput struct {
	Records      []dataset.Record
	RegionColumn string
	Method       domain.Method
	Horizon      domain.Horizon
	EventDates   []time.Time
}

// RegionOutput 為各地區未來銷售合計，依合計遞減排序。
type RegionOutput struct {
	Summary []domain.RegionTotal
}

// RegionUseCase 逐一對各地區子序列執行預測並加總未來值。
// 資料不足或期間已被覆蓋的地區會被略過，不視為錯誤。
type RegionUseCase struct {
	engine *Engine
}

// NewRegionUseCase 建立地區彙總用例。
func NewRegionUseCase(engine *Engine) *RegionUseCase {
	return &RegionUseCase{engine: engine}
}

func (u *RegionUseCase) Execute(ctx context.Context, input RegionInput) (RegionOutput, error) {
	var out RegionOutput

	col := dataset.NormalizeHeader(input.RegionColumn)
	groups := make(map[string][]dataset.Record)
	for _, r := range input.Records {
		region := r.Tags[col]
		if region == "" {
			continue
		}
		groups[region] = append(groups[region], r)
	}
	if len(groups) == 0 {
		// 欄位不存在或沒有任何帶地區值的紀錄，回空摘要。
		return out, nil
	}

	for region, records := range groups {
		res, err := u.engine.Run(ctx, RunInput{
			Series:     dataset.BuildDailySeries(records),
			Method:     input.Method,
			Horizon:    input.Horizon,
			EventDates: input.EventDates,
		})
		if err != nil {
			if domain.IsInsufficientHistory(err) {
				log.Printf("region forecast skipped region=%s reason=insufficient history", region)
				continue
			}
			return RegionOutput{}, err
		}
		if res.Empty() {
			continue
		}
		var total float64
		for _, p := range res.Future {
			total += p.Value
		}
		out.Summary = append(out.Summary, domain.RegionTotal{Region: region, Total: total})
	}

	sort.Slice(out.Summary, func(i, j int) bool {
		if out.Summary[i].Total != out.Summary[j].Total {
			return out.Summary[i].Total > out.Summary[j].Total
		}
		return out.Summary[i].Region < out.Summary[j].Region
	})
	return out, nil
}
