package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmitRequest inicia a emissão de um documento fiscal para um pedido confirmado.
type EmitRequest struct {
	OrderID string `json:"order_id"`
}

// CancelRequest pede o cancelamento de um documento autorizado.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// DocumentResponse é a visão externa de um documento fiscal.
type DocumentResponse struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"order_id"`
	CompanyID       string    `json:"company_id"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"`
	GatewayRef      string    `json:"gateway_ref"`
	Attempt         int       `json:"attempt"`
	AuthorityNumber string    `json:"authority_number,omitempty"`
	AccessKey       string    `json:"access_key,omitempty"`
	PDFURI          string    `json:"pdf_uri,omitempty"`
	XMLURI          string    `json:"xml_uri,omitempty"`
	Warnings        []string  `json:"warnings,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuditEntryResponse é uma linha da trilha de auditoria de um documento.
type AuditEntryResponse struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	HTTPStatus int       `json:"http_status"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PollSummary é o resultado do polling em lote dos documentos em processamento.
type PollSummary struct {
	Polled  int               `json:"polled"`
	Changed int               `json:"changed"`
	Results map[string]string `json:"results"` // documento -> status final ou "erro: ..."
}

// FiscalConfigRequest cria ou atualiza a configuração fiscal da empresa.
type FiscalConfigRequest struct {
	IssuerName   string          `json:"issuer_name"`
	IssuerCNPJ   string          `json:"issuer_cnpj"`
	IssuerUF     string          `json:"issuer_uf"`
	Regime       string          `json:"regime"`
	DefaultNCM   string          `json:"default_ncm"`
	DefaultCFOP  string          `json:"default_cfop"`
	CSOSN        string          `json:"csosn,omitempty"`
	ICMSCST      string          `json:"icms_cst,omitempty"`
	ICMSOrigin   string          `json:"icms_origin,omitempty"`
	ICMSRate     decimal.Decimal `json:"icms_rate"`
	PISCST       string          `json:"pis_cst,omitempty"`
	PISRate      decimal.Decimal `json:"pis_rate"`
	COFINSCST    string          `json:"cofins_cst,omitempty"`
	COFINSRate   decimal.Decimal `json:"cofins_rate"`
	GatewayToken string          `json:"gateway_token"`
	Environment  string          `json:"environment"`
}

// FiscalConfigResponse é a visão externa da configuração fiscal.
// O token do gateway nunca é devolvido.
type FiscalConfigResponse struct {
	CompanyID   string          `json:"company_id"`
	IssuerName  string          `json:"issuer_name"`
	IssuerCNPJ  string          `json:"issuer_cnpj"`
	IssuerUF    string          `json:"issuer_uf"`
	Regime      string          `json:"regime"`
	DefaultNCM  string          `json:"default_ncm"`
	DefaultCFOP string          `json:"default_cfop"`
	CSOSN       string          `json:"csosn,omitempty"`
	ICMSCST     string          `json:"icms_cst,omitempty"`
	ICMSOrigin  string          `json:"icms_origin,omitempty"`
	ICMSRate    decimal.Decimal `json:"icms_rate"`
	PISCST      string          `json:"pis_cst,omitempty"`
	PISRate     decimal.Decimal `json:"pis_rate"`
	COFINSCST   string          `json:"cofins_cst,omitempty"`
	COFINSRate  decimal.Decimal `json:"cofins_rate"`
	Environment string          `json:"environment"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
