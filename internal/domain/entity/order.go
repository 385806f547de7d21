package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order é a visão somente-leitura de um pedido confirmado, consumida pelo motor
// fiscal. O CRUD de pedidos vive em outro módulo; aqui o pedido nunca é alterado.
type Order struct {
	ID             string
	CompanyID      string
	CreatedBy      string // usuário dono do pedido (checagem de autorização)
	ExternalNumber string // número do pedido visível ao cliente
	PaymentTerms   string // ex.: "à vista", "30 dias"
	OperationType  string // venda | devolucao | transferencia (vazio = venda)
	Destination    string // estadual | interestadual | exterior (vazio = estadual)
	Client         Client
	Lines          []OrderLine
	CreatedAt      time.Time
}

// Operation devolve a operação comercial do pedido com os defaults aplicados.
func (o Order) Operation() Operation {
	op := Operation{Type: o.OperationType, Destination: o.Destination}
	if op.Type == "" {
		op.Type = OperationVenda
	}
	if op.Destination == "" {
		op.Destination = DestinoEstadual
	}
	return op
}

// OrderLine é um item do pedido.
type OrderLine struct {
	ProductID   string
	ProductName string
	ProductCode string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	NCM         string          // classificação específica do produto; vazio = usar padrão do tenant
	Weight      decimal.Decimal // kg; zero quando não informado
}

// Total devolve quantidade × preço unitário.
func (l OrderLine) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Client é o destinatário do documento fiscal.
// CNPJ e CPF são mutuamente exclusivos: CNPJ presente marca o destinatário como
// contribuinte; apenas CPF marca como não contribuinte.
type Client struct {
	ID    string
	Name  string
	CNPJ  string
	CPF   string
	Email string
	UF    string
}
