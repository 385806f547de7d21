// Package fiscal contém os serviços puros do motor de emissão: resolução de
// tributos por item e montagem do payload do documento. Nenhuma função deste
// pacote faz I/O; resultados são determinísticos para entradas idênticas, o que
// garante reenvio idempotente e testes exatos.
package fiscal

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	pkgfiscal "github.com/tu-usuario/fiscal-pro/pkg/fiscal"
)

// TaxItem é o resultado de PIS ou COFINS para um item.
type TaxItem struct {
	CST   string
	Rate  decimal.Decimal // percentual
	Base  decimal.Decimal
	Value decimal.Decimal
}

// ICMSItem é o resultado de ICMS para um item (apenas regimes manuais).
type ICMSItem struct {
	CST    string
	Origin string
	Rate   decimal.Decimal
	Base   decimal.Decimal
	Value  decimal.Decimal
}

// TaxResolution é a união dos dois formatos de tributação por item. A
// exclusividade entre CSOSN (unificado) e CST (manual) é garantida pelo tipo:
// só as duas implementações abaixo existem.
type TaxResolution interface {
	// Classification devolve o NCM resolvido do item.
	Classification() string
	// OperationCode devolve o CFOP resolvido do item.
	OperationCode() string
	// TaxValue devolve o total de tributos destacados do item (PIS+COFINS).
	TaxValue() decimal.Decimal

	taxResolution()
}

// UnifiedResolution é a tributação de regimes unificados (Simples/MEI):
// CSOSN no lugar do CST de ICMS e PIS/COFINS zerados com CST 07, pois os
// tributos são recolhidos na guia única do regime.
type UnifiedResolution struct {
	NCM      string
	CFOP     string
	CSOSN    string
	Origin   string
	PIS      TaxItem
	COFINS   TaxItem
	Warnings []string
}

func (r UnifiedResolution) Classification() string    { return r.NCM }
func (r UnifiedResolution) OperationCode() string     { return r.CFOP }
func (r UnifiedResolution) TaxValue() decimal.Decimal { return r.PIS.Value.Add(r.COFINS.Value) }
func (UnifiedResolution) taxResolution()              {}

// ManualResolution é a tributação de regimes normais (Lucro Presumido/Real):
// CSTs e alíquotas configuradas aplicadas literalmente. Alíquota zero é válida.
type ManualResolution struct {
	NCM    string
	CFOP   string
	ICMS   ICMSItem
	PIS    TaxItem
	COFINS TaxItem
}

func (r ManualResolution) Classification() string    { return r.NCM }
func (r ManualResolution) OperationCode() string     { return r.CFOP }
func (r ManualResolution) TaxValue() decimal.Decimal { return r.PIS.Value.Add(r.COFINS.Value) }
func (ManualResolution) taxResolution()              {}

// Resolve determina os códigos e valores tributários de um item do pedido a
// partir da configuração fiscal do tenant e da operação comercial.
//
// Função pura: sem I/O, sem efeitos colaterais, determinística.
func Resolve(cfg entity.FiscalConfig, line entity.OrderLine, op entity.Operation) (TaxResolution, error) {
	ncm, cfop := resolveCodes(cfg, line, op)
	if ncm == "" {
		return nil, &RuleError{Reason: RuleMissingConfig, Field: "default_ncm"}
	}
	if cfop == "" {
		return nil, &RuleError{Reason: RuleMissingConfig, Field: "default_cfop"}
	}

	base := line.Total()

	if pkgfiscal.IsUnifiedRegime(cfg.Regime) {
		if cfg.CSOSN == "" {
			return nil, &RuleError{Reason: RuleMissingConfig, Field: "csosn"}
		}
		origin := cfg.ICMSOrigin
		if origin == "" {
			origin = pkgfiscal.OrigemNacional
		}
		res := UnifiedResolution{
			NCM:    ncm,
			CFOP:   cfop,
			CSOSN:  cfg.CSOSN,
			Origin: origin,
			// PIS/COFINS entram na guia única do regime: nunca destacados por
			// item, mesmo com alíquota configurada.
			PIS:    TaxItem{CST: pkgfiscal.CSTPisCofinsSemIncidencia, Rate: decimal.Zero, Base: base, Value: decimal.Zero},
			COFINS: TaxItem{CST: pkgfiscal.CSTPisCofinsSemIncidencia, Rate: decimal.Zero, Base: base, Value: decimal.Zero},
		}
		if cfg.PISRate.IsPositive() || cfg.COFINSRate.IsPositive() {
			res.Warnings = append(res.Warnings,
				"alíquotas de PIS/COFINS configuradas foram ignoradas: regime unificado não destaca esses tributos por item")
		}
		return res, nil
	}

	// Regimes manuais: códigos de situação configurados são obrigatórios.
	if cfg.ICMSCST == "" {
		return nil, &RuleError{Reason: RuleMissingConfig, Field: "icms_cst"}
	}
	if cfg.PISCST == "" {
		return nil, &RuleError{Reason: RuleMissingConfig, Field: "pis_cst"}
	}
	if cfg.COFINSCST == "" {
		return nil, &RuleError{Reason: RuleMissingConfig, Field: "cofins_cst"}
	}

	origin := cfg.ICMSOrigin
	if origin == "" {
		origin = pkgfiscal.OrigemNacional
	}

	return ManualResolution{
		NCM:  ncm,
		CFOP: cfop,
		ICMS: ICMSItem{
			CST:    cfg.ICMSCST,
			Origin: origin,
			Rate:   cfg.ICMSRate,
			Base:   base,
			Value:  percentOf(base, cfg.ICMSRate),
		},
		PIS: TaxItem{
			CST:   cfg.PISCST,
			Rate:  cfg.PISRate,
			Base:  base,
			Value: percentOf(base, cfg.PISRate),
		},
		COFINS: TaxItem{
			CST:   cfg.COFINSCST,
			Rate:  cfg.COFINSRate,
			Base:  base,
			Value: percentOf(base, cfg.COFINSRate),
		},
	}, nil
}

// resolveCodes aplica os padrões do tenant e as regras de sobrescrita por
// operação. A regra mais específica vence; empate resolve pelo menor Priority.
func resolveCodes(cfg entity.FiscalConfig, line entity.OrderLine, op entity.Operation) (ncm, cfop string) {
	ncm = cfg.DefaultNCM
	if line.NCM != "" {
		ncm = line.NCM
	}
	cfop = cfg.DefaultCFOP

	best := bestOverride(cfg.Overrides, op)
	if best != nil {
		if best.CFOP != "" {
			cfop = best.CFOP
		}
		// NCM de sobrescrita só vale quando o produto não traz o próprio.
		if best.NCM != "" && line.NCM == "" {
			ncm = best.NCM
		}
	}
	return ncm, cfop
}

// bestOverride seleciona a regra aplicável de maior especificidade.
func bestOverride(overrides []entity.OperationOverride, op entity.Operation) *entity.OperationOverride {
	var matched []entity.OperationOverride
	for _, o := range overrides {
		if o.Matches(op) {
			matched = append(matched, o)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := matched[i].Specificity(), matched[j].Specificity()
		if si != sj {
			return si > sj
		}
		return matched[i].Priority < matched[j].Priority
	})
	return &matched[0]
}

// percentOf devolve base × (rate / 100) sem arredondamento.
func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return base.Mul(rate).Div(decimal.NewFromInt(100))
}
