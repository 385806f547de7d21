// Package fiscal contém catálogos e validações alinhados ao leiaute da
// Nota Fiscal Eletrônica (NF-e) e às tabelas de códigos tributários brasileiras.
package fiscal

// =============================================================================
// Regimes tributários (Código de Regime Tributário - CRT)
// Determinam a família de códigos de situação tributária aplicável.
// =============================================================================

const (
	RegimeMEI             = "mei"              // Microempreendedor Individual (CRT 1)
	RegimeSimplesNacional = "simples_nacional" // Simples Nacional (CRT 1)
	RegimeLucroPresumido  = "lucro_presumido"  // Lucro Presumido (CRT 3)
	RegimeLucroReal       = "lucro_real"       // Lucro Real (CRT 3)
)

// ValidRegimes contém os regimes tributários aceitos na configuração fiscal.
var ValidRegimes = map[string]bool{
	RegimeMEI:             true,
	RegimeSimplesNacional: true,
	RegimeLucroPresumido:  true,
	RegimeLucroReal:       true,
}

// IsUnifiedRegime indica se o regime recolhe tributos de forma unificada
// (guia única do Simples): nesses regimes usa-se CSOSN e PIS/COFINS não são
// destacados por item.
func IsUnifiedRegime(regime string) bool {
	return regime == RegimeMEI || regime == RegimeSimplesNacional
}

// =============================================================================
// CSOSN - Código de Situação da Operação no Simples Nacional
// Usado no lugar do CST de ICMS quando o emitente é do Simples/MEI.
// =============================================================================

const (
	CSOSNTributadaSemCredito    = "102" // Tributada pelo Simples sem permissão de crédito
	CSOSNIsencaoFaixaReceita    = "103" // Isenção do ICMS para faixa de receita bruta
	CSOSNImune                  = "300" // Imune
	CSOSNNaoTributada           = "400" // Não tributada pelo Simples Nacional
	CSOSNOutros                 = "900" // Outros
)

// ValidCSOSN códigos CSOSN aceitos na emissão.
var ValidCSOSN = map[string]bool{
	CSOSNTributadaSemCredito: true,
	CSOSNIsencaoFaixaReceita: true,
	CSOSNImune:               true,
	CSOSNNaoTributada:        true,
	CSOSNOutros:              true,
}

// =============================================================================
// CST - Código de Situação Tributária (ICMS, regime normal)
// =============================================================================

const (
	CSTTributadaIntegralmente = "00" // Tributada integralmente
	CSTTributadaComST         = "10" // Tributada com cobrança de ICMS por ST
	CSTComReducaoBase         = "20" // Com redução de base de cálculo
	CSTIsenta                 = "40" // Isenta
	CSTNaoTributada           = "41" // Não tributada
	CSTSuspensao              = "50" // Suspensão
	CSTCobradoAnteriormenteST = "60" // ICMS cobrado anteriormente por ST
	CSTOutras                 = "90" // Outras
)

// ValidCSTICMS códigos CST de ICMS aceitos na emissão.
var ValidCSTICMS = map[string]bool{
	CSTTributadaIntegralmente: true,
	CSTTributadaComST:         true,
	CSTComReducaoBase:         true,
	CSTIsenta:                 true,
	CSTNaoTributada:           true,
	CSTSuspensao:              true,
	CSTCobradoAnteriormenteST: true,
	CSTOutras:                 true,
}

// CST de PIS/COFINS (tabela 4.3.3 / 4.3.4 do leiaute NF-e).
const (
	CSTPisCofinsAliquotaBasica = "01" // Operação tributável, alíquota básica
	CSTPisCofinsAliquotaZero   = "06" // Operação tributável, alíquota zero
	CSTPisCofinsSemIncidencia  = "07" // Operação isenta ou sem incidência da contribuição
	CSTPisCofinsOutras         = "99" // Outras operações
)

// =============================================================================
// Origem da mercadoria (primeiro dígito do CST/CSOSN completo)
// =============================================================================

const (
	OrigemNacional            = "0" // Nacional
	OrigemEstrangeiraImportacao = "1" // Estrangeira, importação direta
	OrigemEstrangeiraInterna  = "2" // Estrangeira, adquirida no mercado interno
)

// =============================================================================
// CFOP - Código Fiscal de Operações e Prestações
// O primeiro dígito indica o destino: 5 = dentro do estado, 6 = interestadual,
// 7 = exterior (saídas). Entradas usam 1/2/3.
// =============================================================================

const (
	CFOPVendaEstadual      = "5102" // Venda de mercadoria adquirida de terceiros, dentro do estado
	CFOPVendaInterestadual = "6102" // Venda de mercadoria adquirida de terceiros, interestadual
	CFOPVendaExterior      = "7102" // Venda de mercadoria para o exterior
	CFOPDevolucaoEstadual  = "5202" // Devolução de compra, dentro do estado
	CFOPTransferencia      = "5152" // Transferência de mercadoria entre estabelecimentos
)

// ValidCFOPPrefix verifica se o CFOP tem 4 dígitos e primeiro dígito de saída válido.
func ValidCFOPPrefix(cfop string) bool {
	if len(cfop) != 4 {
		return false
	}
	switch cfop[0] {
	case '5', '6', '7':
		return true
	}
	return false
}

// =============================================================================
// NCM - Nomenclatura Comum do Mercosul (classificação do produto)
// =============================================================================

// ValidNCM verifica o formato do NCM: 8 dígitos numéricos.
func ValidNCM(ncm string) bool {
	if len(ncm) != 8 {
		return false
	}
	for _, r := range ncm {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
