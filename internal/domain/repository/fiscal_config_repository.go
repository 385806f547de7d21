package repository

import (
	"context"

	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
)

// FiscalConfigRepository define a porta da configuração fiscal do tenant.
// O motor de emissão só lê; a escrita acontece pela tela de configurações.
type FiscalConfigRepository interface {
	// GetByCompanyID devolve a configuração com as regras de sobrescrita já
	// carregadas. nil, nil quando a empresa ainda não configurou o fiscal.
	GetByCompanyID(ctx context.Context, companyID string) (*entity.FiscalConfig, error)
	// Upsert cria ou atualiza a configuração da empresa. Nunca remove.
	Upsert(ctx context.Context, cfg *entity.FiscalConfig) error
}
