package fiscal_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/fiscal"
	pkgfiscal "github.com/tu-usuario/fiscal-pro/pkg/fiscal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Testes de Resolve: a função pura que decide os códigos e valores tributários
// de cada item. Aqui mora a diferença central entre as duas famílias de regime:
//
//	unificado (MEI/Simples)         → CSOSN + PIS/COFINS zerados com CST 07
//	manual (Lucro Presumido/Real)   → CSTs e alíquotas configuradas, literais
// ──────────────────────────────────────────────────────────────────────────────

func buildManualConfig() entity.FiscalConfig {
	return entity.FiscalConfig{
		CompanyID:   "emp-1",
		Regime:      pkgfiscal.RegimeLucroPresumido,
		DefaultNCM:  "61091000",
		DefaultCFOP: "5102",
		ICMSCST:     "00",
		ICMSOrigin:  "0",
		ICMSRate:    decimal.NewFromFloat(18),
		PISCST:      "01",
		PISRate:     decimal.NewFromFloat(1.65),
		COFINSCST:   "01",
		COFINSRate:  decimal.NewFromFloat(7.6),
	}
}

func buildUnifiedConfig() entity.FiscalConfig {
	return entity.FiscalConfig{
		CompanyID:   "emp-1",
		Regime:      pkgfiscal.RegimeSimplesNacional,
		DefaultNCM:  "61091000",
		DefaultCFOP: "5102",
		CSOSN:       "102",
	}
}

func buildLine() entity.OrderLine {
	return entity.OrderLine{
		ProductID:   "prod-1",
		ProductName: "Camiseta",
		ProductCode: "CAM-001",
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.NewFromFloat(10),
	}
}

var opVendaEstadual = entity.Operation{Type: entity.OperationVenda, Destination: entity.DestinoEstadual}

// ── Regime unificado ──────────────────────────────────────────────────────────

func TestResolve_UnificadoUsaCSOSN(t *testing.T) {
	res, err := fiscal.Resolve(buildUnifiedConfig(), buildLine(), opVendaEstadual)
	require.NoError(t, err)

	uni, ok := res.(fiscal.UnifiedResolution)
	require.True(t, ok, "regime unificado deve produzir UnifiedResolution")
	assert.Equal(t, "102", uni.CSOSN)
	assert.Equal(t, "61091000", uni.Classification())
	assert.Equal(t, "5102", uni.OperationCode())
	assert.Equal(t, pkgfiscal.OrigemNacional, uni.Origin)
}

func TestResolve_UnificadoZeraPisCofins(t *testing.T) {
	res, err := fiscal.Resolve(buildUnifiedConfig(), buildLine(), opVendaEstadual)
	require.NoError(t, err)

	uni := res.(fiscal.UnifiedResolution)
	assert.Equal(t, pkgfiscal.CSTPisCofinsSemIncidencia, uni.PIS.CST)
	assert.Equal(t, pkgfiscal.CSTPisCofinsSemIncidencia, uni.COFINS.CST)
	assert.True(t, uni.PIS.Value.IsZero(), "PIS nunca é destacado no regime unificado")
	assert.True(t, uni.COFINS.Value.IsZero(), "COFINS nunca é destacado no regime unificado")
	assert.True(t, uni.TaxValue().IsZero())
	assert.Empty(t, uni.Warnings, "sem alíquotas configuradas não há aviso")
}

// TestResolve_UnificadoAvisaAliquotaIgnorada verifica que alíquotas de
// PIS/COFINS deixadas na configuração de um tenant unificado geram apenas um
// aviso: o valor continua zerado (tributos vão na guia única).
func TestResolve_UnificadoAvisaAliquotaIgnorada(t *testing.T) {
	cfg := buildUnifiedConfig()
	cfg.PISRate = decimal.NewFromFloat(1.65)
	cfg.COFINSRate = decimal.NewFromFloat(7.6)

	res, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
	require.NoError(t, err)

	uni := res.(fiscal.UnifiedResolution)
	assert.True(t, uni.PIS.Value.IsZero())
	assert.True(t, uni.COFINS.Value.IsZero())
	require.Len(t, uni.Warnings, 1, "alíquota configurada em regime unificado deve gerar aviso")
}

func TestResolve_UnificadoSemCSOSNRetornaErro(t *testing.T) {
	cfg := buildUnifiedConfig()
	cfg.CSOSN = ""

	_, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
	var ruleErr *fiscal.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, fiscal.RuleMissingConfig, ruleErr.Reason)
	assert.Equal(t, "csosn", ruleErr.Field)
}

// ── Regime manual ─────────────────────────────────────────────────────────────

func TestResolve_ManualAplicaAliquotasLiterais(t *testing.T) {
	res, err := fiscal.Resolve(buildManualConfig(), buildLine(), opVendaEstadual)
	require.NoError(t, err)

	man, ok := res.(fiscal.ManualResolution)
	require.True(t, ok, "regime manual deve produzir ManualResolution")

	// Base = 2 × 10.00 = 20.00
	base := decimal.NewFromFloat(20)
	assert.True(t, man.ICMS.Base.Equal(base))
	assert.Equal(t, "00", man.ICMS.CST)
	assert.True(t, man.ICMS.Value.Equal(decimal.NewFromFloat(3.6)), "ICMS 18%% de 20.00 = 3.60, obtido %s", man.ICMS.Value)
	assert.True(t, man.PIS.Value.Equal(decimal.NewFromFloat(0.33)), "PIS 1.65%% de 20.00 = 0.33, obtido %s", man.PIS.Value)
	assert.True(t, man.COFINS.Value.Equal(decimal.NewFromFloat(1.52)), "COFINS 7.6%% de 20.00 = 1.52, obtido %s", man.COFINS.Value)
	assert.True(t, man.TaxValue().Equal(decimal.NewFromFloat(1.85)), "tributos destacados = PIS+COFINS")
}

// TestResolve_ManualAliquotaZeroEhValida garante que alíquota zero configurada
// não é confundida com configuração ausente: o item sai com valor zero.
func TestResolve_ManualAliquotaZeroEhValida(t *testing.T) {
	cfg := buildManualConfig()
	cfg.ICMSRate = decimal.Zero

	res, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
	require.NoError(t, err)

	man := res.(fiscal.ManualResolution)
	assert.True(t, man.ICMS.Value.IsZero())
	assert.Equal(t, "00", man.ICMS.CST, "o CST configurado permanece mesmo com alíquota zero")
}

func TestResolve_ManualSemCSTRetornaErro(t *testing.T) {
	casos := []struct {
		nome  string
		muta  func(*entity.FiscalConfig)
		campo string
	}{
		{"sem ICMS CST", func(c *entity.FiscalConfig) { c.ICMSCST = "" }, "icms_cst"},
		{"sem PIS CST", func(c *entity.FiscalConfig) { c.PISCST = "" }, "pis_cst"},
		{"sem COFINS CST", func(c *entity.FiscalConfig) { c.COFINSCST = "" }, "cofins_cst"},
	}
	for _, tc := range casos {
		t.Run(tc.nome, func(t *testing.T) {
			cfg := buildManualConfig()
			tc.muta(&cfg)

			_, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
			var ruleErr *fiscal.RuleError
			require.ErrorAs(t, err, &ruleErr)
			assert.Equal(t, fiscal.RuleMissingConfig, ruleErr.Reason)
			assert.Equal(t, tc.campo, ruleErr.Field)
		})
	}
}

// ── Resolução de códigos ──────────────────────────────────────────────────────

func TestResolve_NCMDoProdutoVenceOPadrao(t *testing.T) {
	line := buildLine()
	line.NCM = "62052000"

	res, err := fiscal.Resolve(buildManualConfig(), line, opVendaEstadual)
	require.NoError(t, err)
	assert.Equal(t, "62052000", res.Classification())
}

func TestResolve_SemNCMRetornaErro(t *testing.T) {
	cfg := buildManualConfig()
	cfg.DefaultNCM = ""

	_, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
	var ruleErr *fiscal.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "default_ncm", ruleErr.Field)
}

func TestResolve_SemCFOPRetornaErro(t *testing.T) {
	cfg := buildManualConfig()
	cfg.DefaultCFOP = ""

	_, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
	var ruleErr *fiscal.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "default_cfop", ruleErr.Field)
}

// ── Regras de sobrescrita ─────────────────────────────────────────────────────

// TestResolve_SobrescritaMaisEspecificaVence monta duas regras aplicáveis à
// mesma operação: uma genérica (qualquer destino) e uma específica
// (interestadual). A específica deve vencer.
func TestResolve_SobrescritaMaisEspecificaVence(t *testing.T) {
	cfg := buildManualConfig()
	cfg.Overrides = []entity.OperationOverride{
		{OperationType: entity.OperationVenda, CFOP: "5102", Priority: 0},
		{OperationType: entity.OperationVenda, Destination: entity.DestinoInterestadual, CFOP: "6102", Priority: 0},
	}
	op := entity.Operation{Type: entity.OperationVenda, Destination: entity.DestinoInterestadual}

	res, err := fiscal.Resolve(cfg, buildLine(), op)
	require.NoError(t, err)
	assert.Equal(t, "6102", res.OperationCode())
}

// TestResolve_EmpateResolvePorPrioridade: duas regras com a mesma especificidade
// desempatam pelo menor Priority.
func TestResolve_EmpateResolvePorPrioridade(t *testing.T) {
	cfg := buildManualConfig()
	cfg.Overrides = []entity.OperationOverride{
		{OperationType: entity.OperationVenda, CFOP: "5405", Priority: 10},
		{OperationType: entity.OperationVenda, CFOP: "5101", Priority: 1},
	}

	res, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
	require.NoError(t, err)
	assert.Equal(t, "5101", res.OperationCode(), "menor Priority vence no empate")
}

func TestResolve_SobrescritaNaoAplicavelEhIgnorada(t *testing.T) {
	cfg := buildManualConfig()
	cfg.Overrides = []entity.OperationOverride{
		{OperationType: entity.OperationDevolucao, CFOP: "1202"},
	}

	res, err := fiscal.Resolve(cfg, buildLine(), opVendaEstadual)
	require.NoError(t, err)
	assert.Equal(t, "5102", res.OperationCode(), "regra de devolução não se aplica a venda")
}

// NCM de sobrescrita só vale quando o produto não traz o próprio.
func TestResolve_NCMDoProdutoVenceSobrescrita(t *testing.T) {
	cfg := buildManualConfig()
	cfg.Overrides = []entity.OperationOverride{
		{OperationType: entity.OperationVenda, CFOP: "5102", NCM: "99999999"},
	}
	line := buildLine()
	line.NCM = "62052000"

	res, err := fiscal.Resolve(cfg, line, opVendaEstadual)
	require.NoError(t, err)
	assert.Equal(t, "62052000", res.Classification())
}

// ── Determinismo ──────────────────────────────────────────────────────────────

// TestResolve_Deterministico: a mesma entrada produz sempre a mesma saída, o
// que sustenta o reenvio idempotente de documentos.
func TestResolve_Deterministico(t *testing.T) {
	cfg := buildManualConfig()
	line := buildLine()

	r1, err1 := fiscal.Resolve(cfg, line, opVendaEstadual)
	r2, err2 := fiscal.Resolve(cfg, line, opVendaEstadual)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, r1, r2, "entradas idênticas devem produzir resoluções idênticas")
}
