package fiscal

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	pkgfiscal "github.com/tu-usuario/fiscal-pro/pkg/fiscal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DocumentPayload é o documento canônico enviado ao gateway da autoridade
// fiscal (JSON). Nomes de campo seguem o leiaute do gateway.
type DocumentPayload struct {
	NaturezaOperacao string `json:"natureza_operacao"`
	DataEmissao      string `json:"data_emissao"` // RFC 3339

	// Emitente (da configuração fiscal do tenant).
	NomeEmitente       string `json:"nome_emitente"`
	CNPJEmitente       string `json:"cnpj_emitente"`
	UFEmitente         string `json:"uf_emitente"`
	RegimeTributario   string `json:"regime_tributario"` // CRT: "1" unificado, "3" normal

	// Destinatário (do cliente do pedido). CNPJ e CPF são mutuamente
	// exclusivos: exatamente um deles é preenchido.
	NomeDestinatario        string `json:"nome_destinatario"`
	CNPJDestinatario        string `json:"cnpj_destinatario,omitempty"`
	CPFDestinatario         string `json:"cpf_destinatario,omitempty"`
	UFDestinatario          string `json:"uf_destinatario,omitempty"`
	DestinatarioContribuinte bool  `json:"destinatario_contribuinte"`

	// Totais do documento. ValorTributos soma apenas PIS+COFINS; o ICMS é
	// acompanhado à parte porque nem todo regime o agrega ao mesmo total.
	ValorProdutos decimal.Decimal `json:"valor_produtos"`
	ValorTributos decimal.Decimal `json:"valor_tributos"`
	ValorICMS     decimal.Decimal `json:"valor_icms"`
	ValorTotal    decimal.Decimal `json:"valor_total"`

	// Referência legível para conciliação no lado do emitente.
	InformacoesAdicionais string `json:"informacoes_adicionais"`

	Itens []PayloadItem `json:"itens"`
}

// PayloadItem é um item do documento com sua tributação resolvida.
// Exatamente um de CSOSN (regime unificado) ou ICMSAliquota/ICMSValor (regime
// manual) aparece no JSON; os demais ficam omitidos.
type PayloadItem struct {
	NumeroItem    int             `json:"numero_item"`
	CodigoProduto string          `json:"codigo_produto"`
	Descricao     string          `json:"descricao"`
	NCM           string          `json:"codigo_ncm"`
	CFOP          string          `json:"cfop"`
	Quantidade    decimal.Decimal `json:"quantidade"`
	ValorUnitario decimal.Decimal `json:"valor_unitario"`
	ValorBruto    decimal.Decimal `json:"valor_bruto"`
	PesoKg        *decimal.Decimal `json:"peso_kg,omitempty"`

	ICMSOrigem string `json:"icms_origem"`

	// Família unificada.
	CSOSN string `json:"icms_csosn,omitempty"`

	// Família manual.
	ICMSCST      string           `json:"icms_situacao_tributaria,omitempty"`
	ICMSAliquota *decimal.Decimal `json:"icms_aliquota,omitempty"`
	ICMSBase     *decimal.Decimal `json:"icms_base_calculo,omitempty"`
	ICMSValor    *decimal.Decimal `json:"icms_valor,omitempty"`

	PISCST          string          `json:"pis_situacao_tributaria"`
	PISAliquota     decimal.Decimal `json:"pis_aliquota"`
	PISBase         decimal.Decimal `json:"pis_base_calculo"`
	PISValor        decimal.Decimal `json:"pis_valor"`
	COFINSCST       string          `json:"cofins_situacao_tributaria"`
	COFINSAliquota  decimal.Decimal `json:"cofins_aliquota"`
	COFINSBase      decimal.Decimal `json:"cofins_base_calculo"`
	COFINSValor     decimal.Decimal `json:"cofins_valor"`
}

// Assemble monta o payload canônico do documento a partir do pedido, da
// configuração do tenant e das resoluções tributárias por item (na mesma ordem
// das linhas do pedido).
//
// Função pura, como Resolve.
func Assemble(order entity.Order, cfg entity.FiscalConfig, resolutions []TaxResolution) (*DocumentPayload, error) {
	if len(order.Lines) == 0 {
		return nil, &AssemblyError{Reason: AssemblyIncompleteOrder, Field: "lines"}
	}
	if len(resolutions) != len(order.Lines) {
		return nil, &AssemblyError{Reason: AssemblyIncompleteOrder, Field: "resolutions"}
	}
	if order.Client.CNPJ == "" && order.Client.CPF == "" {
		return nil, &AssemblyError{Reason: AssemblyIncompleteRecipient, Field: "cnpj_cpf"}
	}

	crt := "3"
	if pkgfiscal.IsUnifiedRegime(cfg.Regime) {
		crt = "1"
	}

	p := &DocumentPayload{
		NaturezaOperacao: naturezaOperacao(order.Operation()),
		DataEmissao:      order.CreatedAt.Format("2006-01-02T15:04:05-07:00"),
		NomeEmitente:     StripDiacritics(cfg.IssuerName),
		CNPJEmitente:     cfg.IssuerCNPJ,
		UFEmitente:       cfg.IssuerUF,
		RegimeTributario: crt,
		NomeDestinatario: StripDiacritics(order.Client.Name),
		UFDestinatario:   order.Client.UF,
		InformacoesAdicionais: StripDiacritics(
			fmt.Sprintf("Pedido %s - Pagamento: %s", order.ExternalNumber, order.PaymentTerms)),
	}

	// Contribuinte (CNPJ) e não contribuinte (CPF) são mutuamente exclusivos.
	if order.Client.CNPJ != "" {
		p.CNPJDestinatario = order.Client.CNPJ
		p.DestinatarioContribuinte = true
	} else {
		p.CPFDestinatario = order.Client.CPF
		p.DestinatarioContribuinte = false
	}

	totalGoods := decimal.Zero
	totalTax := decimal.Zero
	totalICMS := decimal.Zero

	for i, line := range order.Lines {
		item := PayloadItem{
			NumeroItem:    i + 1,
			CodigoProduto: line.ProductCode,
			Descricao:     StripDiacritics(line.ProductName),
			Quantidade:    line.Quantity,
			ValorUnitario: line.UnitPrice,
			ValorBruto:    line.Total(),
		}
		if line.Weight.IsPositive() {
			w := line.Weight
			item.PesoKg = &w
		}

		switch res := resolutions[i].(type) {
		case UnifiedResolution:
			item.NCM = res.NCM
			item.CFOP = res.CFOP
			item.ICMSOrigem = res.Origin
			item.CSOSN = res.CSOSN
			fillPisCofins(&item, res.PIS, res.COFINS)
		case ManualResolution:
			item.NCM = res.NCM
			item.CFOP = res.CFOP
			item.ICMSOrigem = res.ICMS.Origin
			item.ICMSCST = res.ICMS.CST
			rate, base, value := res.ICMS.Rate, res.ICMS.Base, res.ICMS.Value
			item.ICMSAliquota = &rate
			item.ICMSBase = &base
			item.ICMSValor = &value
			totalICMS = totalICMS.Add(value)
			fillPisCofins(&item, res.PIS, res.COFINS)
		default:
			return nil, &AssemblyError{Reason: AssemblyIncompleteOrder, Field: fmt.Sprintf("resolution[%d]", i)}
		}

		totalGoods = totalGoods.Add(item.ValorBruto)
		totalTax = totalTax.Add(resolutions[i].TaxValue())
		p.Itens = append(p.Itens, item)
	}

	p.ValorProdutos = totalGoods
	p.ValorTributos = totalTax
	p.ValorICMS = totalICMS
	p.ValorTotal = totalGoods

	return p, nil
}

func fillPisCofins(item *PayloadItem, pis, cofins TaxItem) {
	item.PISCST = pis.CST
	item.PISAliquota = pis.Rate
	item.PISBase = pis.Base
	item.PISValor = pis.Value
	item.COFINSCST = cofins.CST
	item.COFINSAliquota = cofins.Rate
	item.COFINSBase = cofins.Base
	item.COFINSValor = cofins.Value
}

// naturezaOperacao devolve a descrição da natureza da operação para o documento.
func naturezaOperacao(op entity.Operation) string {
	switch op.Type {
	case entity.OperationDevolucao:
		return "Devolucao de venda"
	case entity.OperationTransferencia:
		return "Transferencia de mercadoria"
	default:
		return "Venda de mercadoria"
	}
}

// StripDiacritics remove acentos de strings antes de irem ao gateway, que
// rejeita caracteres fora do conjunto básico em vários campos texto.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}
