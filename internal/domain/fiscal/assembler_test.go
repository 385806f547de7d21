package fiscal_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/fiscal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Testes de Assemble: o pedido + configuração + resoluções por item viram o
// payload canônico do documento. Cenário de referência com dois itens:
//
//	item 1: 2 × 10.00 = 20.00
//	item 2: 1 × 5.00  =  5.00
//	PIS 1.65% e COFINS 7.6% sobre cada item (regime manual)
//
//	valor_produtos = 25.00
//	valor_tributos = 25.00 × 9.25% = 2.3125  (PIS 0.4125 + COFINS 1.90)
// ──────────────────────────────────────────────────────────────────────────────

func buildOrder() entity.Order {
	return entity.Order{
		ID:             "ped-1",
		CompanyID:      "emp-1",
		CreatedBy:      "user-1",
		ExternalNumber: "PED-0042",
		PaymentTerms:   "30 dias",
		Client: entity.Client{
			ID:   "cli-1",
			Name: "Comércio São João Ltda",
			CNPJ: "11222333000181",
			UF:   "SP",
		},
		Lines: []entity.OrderLine{
			{ProductCode: "CAM-001", ProductName: "Camiseta", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromFloat(10)},
			{ProductCode: "BON-002", ProductName: "Boné", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(5)},
		},
		CreatedAt: time.Date(2026, 3, 10, 14, 30, 0, 0, time.FixedZone("BRT", -3*3600)),
	}
}

func buildResolutions(t *testing.T, cfg entity.FiscalConfig, order entity.Order) []fiscal.TaxResolution {
	t.Helper()
	resolutions := make([]fiscal.TaxResolution, 0, len(order.Lines))
	for _, line := range order.Lines {
		res, err := fiscal.Resolve(cfg, line, order.Operation())
		require.NoError(t, err)
		resolutions = append(resolutions, res)
	}
	return resolutions
}

// ── Regime manual ─────────────────────────────────────────────────────────────

func TestAssemble_TotaisRegimeManual(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()
	payload, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)

	assert.True(t, payload.ValorProdutos.Equal(decimal.NewFromFloat(25)),
		"valor_produtos = 25.00, obtido %s", payload.ValorProdutos)
	assert.True(t, payload.ValorTributos.Equal(decimal.NewFromFloat(2.3125)),
		"valor_tributos = PIS 0.4125 + COFINS 1.90 = 2.3125, obtido %s", payload.ValorTributos)
	assert.True(t, payload.ValorICMS.Equal(decimal.NewFromFloat(4.5)),
		"valor_icms = 18%% de 25.00 = 4.50, obtido %s", payload.ValorICMS)
	assert.True(t, payload.ValorTotal.Equal(decimal.NewFromFloat(25)))
	assert.Equal(t, "3", payload.RegimeTributario, "regime manual emite com CRT 3")
}

func TestAssemble_ItensRegimeManual(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()
	payload, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)
	require.Len(t, payload.Itens, 2)

	item := payload.Itens[0]
	assert.Equal(t, 1, item.NumeroItem)
	assert.Equal(t, "CAM-001", item.CodigoProduto)
	assert.Equal(t, "61091000", item.NCM)
	assert.Equal(t, "5102", item.CFOP)
	assert.Empty(t, item.CSOSN, "regime manual não leva CSOSN")
	assert.Equal(t, "00", item.ICMSCST)
	require.NotNil(t, item.ICMSValor)
	assert.True(t, item.ICMSValor.Equal(decimal.NewFromFloat(3.6)))
	assert.True(t, item.PISValor.Equal(decimal.NewFromFloat(0.33)))
	assert.True(t, item.COFINSValor.Equal(decimal.NewFromFloat(1.52)))
}

// ── Regime unificado ──────────────────────────────────────────────────────────

func TestAssemble_RegimeUnificadoNaoDestacaICMS(t *testing.T) {
	cfg := buildUnifiedConfig()
	order := buildOrder()
	payload, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)

	assert.Equal(t, "1", payload.RegimeTributario, "regime unificado emite com CRT 1")
	assert.True(t, payload.ValorTributos.IsZero())
	assert.True(t, payload.ValorICMS.IsZero())

	item := payload.Itens[0]
	assert.Equal(t, "102", item.CSOSN)
	assert.Empty(t, item.ICMSCST)
	assert.Nil(t, item.ICMSAliquota, "regime unificado não destaca alíquota de ICMS")
	assert.Nil(t, item.ICMSValor)
	assert.Equal(t, "07", item.PISCST)
	assert.True(t, item.PISValor.IsZero())
}

// TestAssemble_ExclusividadeCSOSNCSTNoJSON serializa os dois regimes e confere
// que cada JSON carrega apenas a família de campos do próprio regime.
func TestAssemble_ExclusividadeCSOSNCSTNoJSON(t *testing.T) {
	order := buildOrder()

	cfgUni := buildUnifiedConfig()
	pUni, err := fiscal.Assemble(order, cfgUni, buildResolutions(t, cfgUni, order))
	require.NoError(t, err)
	rawUni, err := json.Marshal(pUni)
	require.NoError(t, err)
	assert.Contains(t, string(rawUni), `"icms_csosn"`)
	assert.NotContains(t, string(rawUni), `"icms_situacao_tributaria"`)
	assert.NotContains(t, string(rawUni), `"icms_aliquota"`)

	cfgMan := buildManualConfig()
	pMan, err := fiscal.Assemble(order, cfgMan, buildResolutions(t, cfgMan, order))
	require.NoError(t, err)
	rawMan, err := json.Marshal(pMan)
	require.NoError(t, err)
	assert.Contains(t, string(rawMan), `"icms_situacao_tributaria"`)
	assert.NotContains(t, string(rawMan), `"icms_csosn"`)
}

// ── Destinatário ──────────────────────────────────────────────────────────────

func TestAssemble_DestinatarioCNPJEhContribuinte(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()
	payload, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)

	assert.Equal(t, "11222333000181", payload.CNPJDestinatario)
	assert.Empty(t, payload.CPFDestinatario)
	assert.True(t, payload.DestinatarioContribuinte)
}

func TestAssemble_DestinatarioSomenteCPFNaoContribuinte(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()
	order.Client.CNPJ = ""
	order.Client.CPF = "12345678909"

	payload, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)

	assert.Empty(t, payload.CNPJDestinatario)
	assert.Equal(t, "12345678909", payload.CPFDestinatario)
	assert.False(t, payload.DestinatarioContribuinte)
}

func TestAssemble_DestinatarioSemDocumentoRetornaErro(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()
	resolutions := buildResolutions(t, cfg, order)
	order.Client.CNPJ = ""
	order.Client.CPF = ""

	_, err := fiscal.Assemble(order, cfg, resolutions)
	var asmErr *fiscal.AssemblyError
	require.ErrorAs(t, err, &asmErr)
	assert.Equal(t, fiscal.AssemblyIncompleteRecipient, asmErr.Reason)
}

// ── Pedido incompleto ─────────────────────────────────────────────────────────

func TestAssemble_PedidoSemItensRetornaErro(t *testing.T) {
	order := buildOrder()
	order.Lines = nil

	_, err := fiscal.Assemble(order, buildManualConfig(), nil)
	var asmErr *fiscal.AssemblyError
	require.ErrorAs(t, err, &asmErr)
	assert.Equal(t, fiscal.AssemblyIncompleteOrder, asmErr.Reason)
}

func TestAssemble_ResolucoesDescasadasRetornaErro(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()
	resolutions := buildResolutions(t, cfg, order)

	_, err := fiscal.Assemble(order, cfg, resolutions[:1])
	var asmErr *fiscal.AssemblyError
	require.ErrorAs(t, err, &asmErr)
	assert.Equal(t, "resolutions", asmErr.Field)
}

// ── Texto livre ───────────────────────────────────────────────────────────────

func TestAssemble_InformacoesAdicionaisReferenciamPedido(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()
	payload, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)

	assert.Equal(t, "Pedido PED-0042 - Pagamento: 30 dias", payload.InformacoesAdicionais)
}

func TestAssemble_RemoveAcentosDosCamposTexto(t *testing.T) {
	cfg := buildManualConfig()
	cfg.IssuerName = "Indústria Açúcar & Cia"
	order := buildOrder()

	payload, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)

	assert.Equal(t, "Industria Acucar & Cia", payload.NomeEmitente)
	assert.Equal(t, "Comercio Sao Joao Ltda", payload.NomeDestinatario)
	assert.Equal(t, "Bone", payload.Itens[1].Descricao)
}

func TestStripDiacritics(t *testing.T) {
	casos := []struct {
		entrada  string
		esperado string
	}{
		{"ação", "acao"},
		{"Pão de Açúcar", "Pao de Acucar"},
		{"sem acento", "sem acento"},
		{"  com espaço  ", "com espaco"},
	}
	for _, tc := range casos {
		assert.Equal(t, tc.esperado, fiscal.StripDiacritics(tc.entrada), "entrada: %q", tc.entrada)
	}
}

// TestAssemble_Deterministico: mesmo pedido e configuração produzem payloads
// byte a byte idênticos após serialização (reenvio idempotente).
func TestAssemble_Deterministico(t *testing.T) {
	cfg := buildManualConfig()
	order := buildOrder()

	p1, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)
	p2, err := fiscal.Assemble(order, cfg, buildResolutions(t, cfg, order))
	require.NoError(t, err)

	raw1, err := json.Marshal(p1)
	require.NoError(t, err)
	raw2, err := json.Marshal(p2)
	require.NoError(t, err)
	assert.Equal(t, raw1, raw2)
}
