package fiscal

import (
	"context"
	"errors"
	"sync"

	"github.com/tu-usuario/fiscal-pro/internal/application/dto"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
)

// PollPending consulta a situação de todos os documentos da empresa que
// aguardam resposta da autoridade (PROCESSING), com uma consulta por documento
// em paralelo, limitado por pollConcurrency para respeitar o rate limit do
// gateway.
//
// O gatilho periódico é um colaborador externo (cron/agendador chamando este
// endpoint); cada PollStatus individual é idempotente por situação observada,
// então execuções sobrepostas são inofensivas.
func (uc *LifecycleUseCase) PollPending(ctx context.Context, principal entity.Principal) (*dto.PollSummary, error) {
	docs, err := uc.docRepo.ListProcessingByCompany(ctx, principal.CompanyID)
	if err != nil {
		return nil, err
	}

	summary := &dto.PollSummary{Results: make(map[string]string, len(docs))}
	if len(docs) == 0 {
		return summary, nil
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		slots = make(chan struct{}, uc.pollConcurrency)
	)

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		slots <- struct{}{}
		go func(documentID string) {
			defer wg.Done()
			defer func() { <-slots }()

			resp, pollErr := uc.PollStatus(ctx, principal, documentID)

			mu.Lock()
			defer mu.Unlock()
			summary.Polled++
			switch {
			case pollErr == nil:
				summary.Results[documentID] = resp.Status
				if resp.Status != entity.DocumentStatusProcessing {
					summary.Changed++
				}
			case isStateError(pollErr):
				// Outro chamador avançou o documento entre a listagem e a
				// consulta; nada a fazer.
				summary.Results[documentID] = "ignorado: " + pollErr.Error()
			default:
				summary.Results[documentID] = "erro: " + pollErr.Error()
			}
		}(doc.ID)
	}

	wg.Wait()
	return summary, nil
}

func isStateError(err error) bool {
	var stateErr *entity.StateError
	return errors.As(err, &stateErr)
}
