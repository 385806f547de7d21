package fiscal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/fiscal-pro/internal/application/dto"
	"github.com/tu-usuario/fiscal-pro/internal/domain"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
	pkgfiscal "github.com/tu-usuario/fiscal-pro/pkg/fiscal"
)

// ConfigUseCase administra a configuração fiscal do tenant.
// É a única porta de escrita; o motor de emissão apenas lê.
type ConfigUseCase struct {
	configRepo repository.FiscalConfigRepository
}

// NewConfigUseCase constrói o caso de uso.
func NewConfigUseCase(configRepo repository.FiscalConfigRepository) *ConfigUseCase {
	return &ConfigUseCase{configRepo: configRepo}
}

// Get devolve a configuração fiscal da empresa, sem o token do gateway.
func (uc *ConfigUseCase) Get(ctx context.Context, companyID string) (*dto.FiscalConfigResponse, error) {
	cfg, err := uc.configRepo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}
	return toConfigResponse(cfg), nil
}

// Upsert cria ou atualiza a configuração fiscal da empresa. A configuração
// nunca é removida, apenas atualizada.
func (uc *ConfigUseCase) Upsert(ctx context.Context, companyID string, in dto.FiscalConfigRequest) (*dto.FiscalConfigResponse, error) {
	if !pkgfiscal.ValidRegimes[in.Regime] {
		return nil, domain.ErrInvalidInput
	}
	if in.Environment != entity.EnvironmentSandbox && in.Environment != entity.EnvironmentProduction {
		return nil, domain.ErrInvalidInput
	}
	if in.DefaultNCM != "" && !pkgfiscal.ValidNCM(in.DefaultNCM) {
		return nil, domain.ErrInvalidInput
	}
	if in.DefaultCFOP != "" && !pkgfiscal.ValidCFOPPrefix(in.DefaultCFOP) {
		return nil, domain.ErrInvalidInput
	}
	if in.CSOSN != "" && !pkgfiscal.ValidCSOSN[in.CSOSN] {
		return nil, domain.ErrInvalidInput
	}
	if in.ICMSCST != "" && !pkgfiscal.ValidCSTICMS[in.ICMSCST] {
		return nil, domain.ErrInvalidInput
	}

	existing, err := uc.configRepo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cfg := &entity.FiscalConfig{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		IssuerName:   in.IssuerName,
		IssuerCNPJ:   in.IssuerCNPJ,
		IssuerUF:     in.IssuerUF,
		Regime:       in.Regime,
		DefaultNCM:   in.DefaultNCM,
		DefaultCFOP:  in.DefaultCFOP,
		CSOSN:        in.CSOSN,
		ICMSCST:      in.ICMSCST,
		ICMSOrigin:   in.ICMSOrigin,
		ICMSRate:     in.ICMSRate,
		PISCST:       in.PISCST,
		PISRate:      in.PISRate,
		COFINSCST:    in.COFINSCST,
		COFINSRate:   in.COFINSRate,
		GatewayToken: in.GatewayToken,
		Environment:  in.Environment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing != nil {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		cfg.Overrides = existing.Overrides
		// Token vazio na atualização preserva o token atual.
		if cfg.GatewayToken == "" {
			cfg.GatewayToken = existing.GatewayToken
		}
	}

	if err := uc.configRepo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return toConfigResponse(cfg), nil
}

func toConfigResponse(cfg *entity.FiscalConfig) *dto.FiscalConfigResponse {
	return &dto.FiscalConfigResponse{
		CompanyID:   cfg.CompanyID,
		IssuerName:  cfg.IssuerName,
		IssuerCNPJ:  cfg.IssuerCNPJ,
		IssuerUF:    cfg.IssuerUF,
		Regime:      cfg.Regime,
		DefaultNCM:  cfg.DefaultNCM,
		DefaultCFOP: cfg.DefaultCFOP,
		CSOSN:       cfg.CSOSN,
		ICMSCST:     cfg.ICMSCST,
		ICMSOrigin:  cfg.ICMSOrigin,
		ICMSRate:    cfg.ICMSRate,
		PISCST:      cfg.PISCST,
		PISRate:     cfg.PISRate,
		COFINSCST:   cfg.COFINSCST,
		COFINSRate:  cfg.COFINSRate,
		Environment: cfg.Environment,
		UpdatedAt:   cfg.UpdatedAt,
	}
}
