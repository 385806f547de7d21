package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
)

var _ repository.FiscalConfigRepository = (*FiscalConfigRepo)(nil)

// FiscalConfigRepo implementação de FiscalConfigRepository sobre PostgreSQL.
type FiscalConfigRepo struct {
	q Querier
}

// NewFiscalConfigRepository constrói o adaptador.
func NewFiscalConfigRepository(q Querier) *FiscalConfigRepo {
	return &FiscalConfigRepo{q: q}
}

// GetByCompanyID devolve a configuração com as regras de sobrescrita carregadas.
// nil, nil quando a empresa ainda não configurou o fiscal.
func (r *FiscalConfigRepo) GetByCompanyID(ctx context.Context, companyID string) (*entity.FiscalConfig, error) {
	const q = `
		SELECT id, company_id, issuer_name, issuer_cnpj, issuer_uf, regime,
		       default_ncm, default_cfop, csosn,
		       icms_cst, icms_origin, icms_rate,
		       pis_cst, pis_rate, cofins_cst, cofins_rate,
		       gateway_token, environment, created_at, updated_at
		FROM fiscal_configs WHERE company_id = $1`
	var c entity.FiscalConfig
	err := r.q.QueryRow(ctx, q, companyID).Scan(
		&c.ID, &c.CompanyID, &c.IssuerName, &c.IssuerCNPJ, &c.IssuerUF, &c.Regime,
		&c.DefaultNCM, &c.DefaultCFOP, &c.CSOSN,
		&c.ICMSCST, &c.ICMSOrigin, &c.ICMSRate,
		&c.PISCST, &c.PISRate, &c.COFINSCST, &c.COFINSRate,
		&c.GatewayToken, &c.Environment, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal_config: %w", err)
	}

	overrides, err := r.listOverrides(ctx, companyID)
	if err != nil {
		return nil, err
	}
	c.Overrides = overrides
	return &c, nil
}

// Upsert cria ou atualiza a configuração da empresa (uma por empresa).
func (r *FiscalConfigRepo) Upsert(ctx context.Context, cfg *entity.FiscalConfig) error {
	const q = `
		INSERT INTO fiscal_configs
			(id, company_id, issuer_name, issuer_cnpj, issuer_uf, regime,
			 default_ncm, default_cfop, csosn,
			 icms_cst, icms_origin, icms_rate,
			 pis_cst, pis_rate, cofins_cst, cofins_rate,
			 gateway_token, environment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (company_id) DO UPDATE
		SET issuer_name = EXCLUDED.issuer_name, issuer_cnpj = EXCLUDED.issuer_cnpj,
		    issuer_uf = EXCLUDED.issuer_uf, regime = EXCLUDED.regime,
		    default_ncm = EXCLUDED.default_ncm, default_cfop = EXCLUDED.default_cfop,
		    csosn = EXCLUDED.csosn, icms_cst = EXCLUDED.icms_cst,
		    icms_origin = EXCLUDED.icms_origin, icms_rate = EXCLUDED.icms_rate,
		    pis_cst = EXCLUDED.pis_cst, pis_rate = EXCLUDED.pis_rate,
		    cofins_cst = EXCLUDED.cofins_cst, cofins_rate = EXCLUDED.cofins_rate,
		    gateway_token = EXCLUDED.gateway_token, environment = EXCLUDED.environment,
		    updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, q,
		cfg.ID, cfg.CompanyID, cfg.IssuerName, cfg.IssuerCNPJ, cfg.IssuerUF, cfg.Regime,
		cfg.DefaultNCM, cfg.DefaultCFOP, cfg.CSOSN,
		cfg.ICMSCST, cfg.ICMSOrigin, cfg.ICMSRate,
		cfg.PISCST, cfg.PISRate, cfg.COFINSCST, cfg.COFINSRate,
		cfg.GatewayToken, cfg.Environment, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert fiscal_config: %w", err)
	}
	return nil
}

// listOverrides carrega as regras de sobrescrita da empresa, por prioridade.
func (r *FiscalConfigRepo) listOverrides(ctx context.Context, companyID string) ([]entity.OperationOverride, error) {
	const q = `
		SELECT id, company_id, operation_type, destination, cfop, ncm, priority, created_at
		FROM fiscal_operation_overrides
		WHERE company_id = $1
		ORDER BY priority`
	rows, err := r.q.Query(ctx, q, companyID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal_operation_overrides: %w", err)
	}
	defer rows.Close()

	var list []entity.OperationOverride
	for rows.Next() {
		var o entity.OperationOverride
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.OperationType, &o.Destination,
			&o.CFOP, &o.NCM, &o.Priority, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fiscal_operation_override: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
