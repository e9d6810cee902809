package service

import (
	"math"

	"doc-vault-server/internal/model"
)

const bytesInMB = 1024 * 1024

func TotalBytes(docs []model.Document) int64 {
	var total int64
	for _, doc := range docs {
		if doc.SizeBytes > 0 {
			total += doc.SizeBytes
		}
	}
	return total
}

// CalculateUsage : занятое место по набору документов
// Остаток и процент не ограничиваются, превышение квоты видно как отрицательный остаток
func CalculateUsage(docs []model.Document, capMB float64) model.QuotaView {
	usedMB := round2(float64(TotalBytes(docs)) / bytesInMB)

	usage := model.QuotaView{
		UsedMB:      usedMB,
		RemainingMB: round2(capMB - usedMB),
		MaxMB:       capMB,
	}
	if capMB > 0 {
		usage.UsagePercent = round2(usedMB / capMB * 100)
	}
	return usage
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
