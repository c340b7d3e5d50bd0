package exec

import (
	"github.com/pborman/uuid"
)

// Context is the state for one scheduling run. It exists for log
// correlation across rounds and is handed to the task executor with
// every batch. Nothing in it survives the run.
type Context struct {
	// ID uniquely identifies this run in logs
	ID   string
	Conf *RuntimeConfig
}

func NewContext(conf *RuntimeConfig) *Context {
	if conf == nil {
		conf = NewRuntimeConfig()
	}
	return &Context{ID: uuid.New(), Conf: conf}
}
