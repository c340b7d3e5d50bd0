package worker

import (
	"fmt"
	"strings"
	"sync"

	u "github.com/araddon/gou"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // workers speak postgres
)

// TxSender executes command batches on worker nodes, each batch inside
// one transaction scoped to that worker. There is never a distributed
// transaction across workers; each worker's batch is independently
// atomic.
type TxSender struct {
	dsnTemplate string

	mu  sync.Mutex
	dbs map[string]*sqlx.DB // node address -> connection pool
}

func NewTxSender(dsnTemplate string) *TxSender {
	return &TxSender{
		dsnTemplate: dsnTemplate,
		dbs:         make(map[string]*sqlx.DB),
	}
}

func (m *TxSender) db(node *Node) (*sqlx.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if db, ok := m.dbs[node.Key()]; ok {
		return db, nil
	}
	db, err := sqlx.Open("postgres", node.DSN(m.dsnTemplate))
	if err != nil {
		return nil, fmt.Errorf("open worker %s: %v", node.Key(), err)
	}
	m.dbs[node.Key()] = db
	return db, nil
}

// SendCommandsInTransaction runs the ordered command list against the
// given worker inside a single transaction, so either every command
// takes effect on that worker or none do. The first failing command
// rolls back and surfaces; callers treat that as fatal for the run.
func (m *TxSender) SendCommandsInTransaction(node *Node, commands []string) error {
	db, err := m.db(node)
	if err != nil {
		return err
	}
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin on worker %s: %v", node.Key(), err)
	}
	for _, command := range commands {
		if _, err := tx.Exec(command); err != nil {
			tx.Rollback()
			u.Warnf("worker %s rejected command %q: %v", node.Key(), command, err)
			return fmt.Errorf("worker %s: %v", node.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit on worker %s: %v", node.Key(), err)
	}
	return nil
}

// Close releases every cached worker connection pool.
func (m *TxSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := make([]string, 0)
	for addr, db := range m.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", addr, err))
		}
		delete(m.dbs, addr)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close worker pools: %s", strings.Join(errs, "; "))
	}
	return nil
}
