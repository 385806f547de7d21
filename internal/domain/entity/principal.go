package entity

// Papéis de usuário reconhecidos pelo motor fiscal.
const (
	RoleAdmin    = "admin"
	RoleVendedor = "vendedor"
)

// Principal é o ator autenticado de uma requisição (extraído do JWT).
// A checagem de autorização de cada transição avalia o principal contra o
// pedido de origem antes de qualquer chamada ao gateway.
type Principal struct {
	UserID    string
	CompanyID string
	Role      string
}

// IsAdmin indica papel administrativo (acesso a qualquer pedido da empresa).
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// MayOperate indica se o principal pode agir sobre o pedido: precisa ser da
// mesma empresa e ser o dono do pedido ou admin.
func (p Principal) MayOperate(order *Order) bool {
	if order == nil || p.CompanyID != order.CompanyID {
		return false
	}
	return p.IsAdmin() || p.UserID == order.CreatedBy
}
