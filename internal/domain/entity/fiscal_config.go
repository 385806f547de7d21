package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ambientes do gateway de emissão.
const (
	EnvironmentSandbox    = "sandbox"    // homologação
	EnvironmentProduction = "production" // produção
)

// FiscalConfig é a configuração fiscal de um tenant (empresa).
// Existe uma por empresa; é alterada apenas pela tela de configurações e nunca
// removida, apenas atualizada. O motor de emissão a lê e nunca a modifica.
type FiscalConfig struct {
	ID        string
	CompanyID string

	// Identificação do emitente nos documentos.
	IssuerName string
	IssuerCNPJ string
	IssuerUF   string

	// Regime tributário: ver pkg/fiscal (mei, simples_nacional, lucro_presumido, lucro_real).
	Regime string

	// Códigos padrão por item quando o produto não traz os próprios.
	DefaultNCM  string // classificação do produto
	DefaultCFOP string // natureza da operação

	// Família unificada (Simples/MEI): CSOSN substitui o CST de ICMS.
	CSOSN string

	// Família manual (Lucro Presumido/Real): CSTs e alíquotas configuradas.
	// Alíquota zero é válida e não significa "não configurado".
	ICMSCST    string
	ICMSOrigin string
	ICMSRate   decimal.Decimal // percentual, ex. 18 = 18%
	PISCST     string
	PISRate    decimal.Decimal // percentual, ex. 1.65
	COFINSCST  string
	COFINSRate decimal.Decimal // percentual, ex. 7.6

	// Credencial e ambiente do gateway da autoridade fiscal.
	GatewayToken string
	Environment  string // sandbox | production

	// Regras de sobrescrita de códigos por tipo de operação/destino.
	Overrides []OperationOverride

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tipos de operação comercial.
const (
	OperationVenda         = "venda"
	OperationDevolucao     = "devolucao"
	OperationTransferencia = "transferencia"
)

// Destinos da operação (define o primeiro dígito do CFOP).
const (
	DestinoEstadual      = "estadual"
	DestinoInterestadual = "interestadual"
	DestinoExterior      = "exterior"
)

// Operation identifica a natureza e o destino de uma operação comercial.
type Operation struct {
	Type        string // venda | devolucao | transferencia
	Destination string // estadual | interestadual | exterior
}

// OperationOverride sobrescreve CFOP (e opcionalmente NCM) quando a operação casa
// com o tipo e/ou destino configurados. Campo vazio casa com qualquer valor.
// A regra mais específica vence; empate resolve pelo menor Priority.
type OperationOverride struct {
	ID            string
	CompanyID     string
	OperationType string // vazio = qualquer tipo
	Destination   string // vazio = qualquer destino
	CFOP          string
	NCM           string // opcional
	Priority      int
	CreatedAt     time.Time
}

// Matches indica se a regra se aplica à operação.
func (o OperationOverride) Matches(op Operation) bool {
	if o.OperationType != "" && o.OperationType != op.Type {
		return false
	}
	if o.Destination != "" && o.Destination != op.Destination {
		return false
	}
	return true
}

// Specificity conta quantos campos da regra são restritivos (não curinga).
func (o OperationOverride) Specificity() int {
	n := 0
	if o.OperationType != "" {
		n++
	}
	if o.Destination != "" {
		n++
	}
	return n
}
