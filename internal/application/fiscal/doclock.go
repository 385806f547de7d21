package fiscal

import "sync"

// documentLocks serializa transições por documento: o id é o domínio de
// exclusão mútua. Documentos distintos operam em paralelo sem contenção.
// Entradas são removidas quando o último interessado solta o lock.
type documentLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newDocumentLocks() *documentLocks {
	return &documentLocks{locks: make(map[string]*lockEntry)}
}

// Acquire bloqueia a chave e devolve a função de liberação. A liberação deve
// acontecer em todos os caminhos de saída, inclusive erros de gateway.
func (d *documentLocks) Acquire(key string) (release func()) {
	d.mu.Lock()
	e, ok := d.locks[key]
	if !ok {
		e = &lockEntry{}
		d.locks[key] = e
	}
	e.refs++
	d.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		d.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}
}
