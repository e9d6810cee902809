package service

import (
	"context"
	"errors"
	"time"

	"doc-vault-server/config"
	"doc-vault-server/internal/apperror"
	"doc-vault-server/internal/metrics"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/ports"
	"doc-vault-server/internal/util"

	"github.com/rs/zerolog/log"
)

// Reconciler : сводит хранилище и метаданные после частичных сбоев загрузки и удаления
type Reconciler struct {
	documentRepository ports.DocumentRepository
	storage            ports.BlobStore
	queue              ports.ReconcileQueue
	interval           time.Duration
	batchSize          int
	gracePeriod        time.Duration
	now                func() time.Time
}

func NewReconciler(documentRepository ports.DocumentRepository, storage ports.BlobStore, queue ports.ReconcileQueue, cfg config.ReconcileConfig) *Reconciler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{
		documentRepository: documentRepository,
		storage:            storage,
		queue:              queue,
		interval:           cfg.Interval.Std(),
		batchSize:          batchSize,
		gracePeriod:        cfg.GracePeriod.Std(),
		now:                time.Now,
	}
}

// Run : проходы по таймеру до отмены ctx
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		log.Warn().Msg("[Reconciler] интервал не задан, сверка отключена")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("[Reconciler] остановлен")
			return
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("[Reconciler] проход завершился с ошибкой")
				continue
			}
			if report.Processed > 0 || report.SweptOrphans > 0 {
				log.Info().
					Int("processed", report.Processed).
					Int("blobs_deleted", report.BlobsDeleted).
					Int("rows_deleted", report.RowsDeleted).
					Int("requeued", report.Requeued).
					Int("swept", report.SweptOrphans).
					Msg("[Reconciler] проход завершён")
			}
		}
	}
}

// RunOnce : разбирает очередь кандидатов, потом ищет объекты без строк старше gracePeriod
func (r *Reconciler) RunOnce(ctx context.Context) (*model.ReconcileReport, error) {
	report := &model.ReconcileReport{}

	candidates, err := r.queue.Dequeue(ctx, r.batchSize)
	if err != nil {
		return nil, util.LogError("[Reconciler] не удалось прочитать очередь", err)
	}

	var failed []model.ReconcileCandidate
	for _, candidate := range candidates {
		report.Processed++

		var handleErr error
		switch candidate.Kind {
		case model.ReconcileOrphanBlob:
			var deleted bool
			deleted, handleErr = r.resolveOrphanBlob(ctx, candidate)
			if deleted {
				report.BlobsDeleted++
			}
		case model.ReconcileStaleMetadata:
			handleErr = r.resolveStaleMetadata(ctx, candidate)
			if handleErr == nil {
				report.RowsDeleted++
			}
		default:
			log.Warn().Str("kind", candidate.Kind).Msg("[Reconciler] неизвестный тип кандидата, пропускаем")
			metrics.ObserveReconcile(candidate.Kind, "skipped")
			continue
		}

		if handleErr != nil {
			log.Warn().Err(handleErr).Str("kind", candidate.Kind).Str("storage_key", candidate.StorageKey).Msg("[Reconciler] кандидат возвращён в очередь")
			metrics.ObserveReconcile(candidate.Kind, "requeued")
			failed = append(failed, candidate)
			continue
		}
		metrics.ObserveReconcile(candidate.Kind, "resolved")
	}

	for _, candidate := range failed {
		if err := r.queue.Enqueue(ctx, candidate); err != nil {
			return report, util.LogError("[Reconciler] не удалось вернуть кандидата в очередь", err)
		}
		report.Requeued++
	}

	if err := r.sweep(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

// resolveOrphanBlob : объект удаляется, только если на него так и не появилась строка
func (r *Reconciler) resolveOrphanBlob(ctx context.Context, candidate model.ReconcileCandidate) (bool, error) {
	exists, err := r.documentRepository.StorageKeyExists(ctx, candidate.StorageKey)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := r.storage.Delete(ctx, candidate.StorageKey); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Reconciler) resolveStaleMetadata(ctx context.Context, candidate model.ReconcileCandidate) error {
	err := r.documentRepository.DeleteWithShares(ctx, candidate.DocumentID, candidate.OwnerID)
	if err == nil || errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	return err
}

// sweep : сироты, которые не попали в очередь, например при падении процесса между Put и Create
func (r *Reconciler) sweep(ctx context.Context, report *model.ReconcileReport) error {
	keys, err := r.storage.ListKeys(ctx, util.StorageKeyPrefix)
	if err != nil {
		return util.LogError("[Reconciler] не удалось получить список объектов", err)
	}

	cutoff := r.now().Add(-r.gracePeriod)
	for _, key := range keys {
		if key.LastModified.After(cutoff) {
			continue
		}

		exists, err := r.documentRepository.StorageKeyExists(ctx, key.Key)
		if err != nil {
			report.SweepFailures++
			continue
		}
		if exists {
			continue
		}

		if err := r.storage.Delete(ctx, key.Key); err != nil {
			report.SweepFailures++
			continue
		}
		log.Info().Str("storage_key", key.Key).Msg("[Reconciler] удалён объект без метаданных")
		metrics.ObserveReconcile("sweep", "resolved")
		report.SweptOrphans++
	}
	return nil
}
