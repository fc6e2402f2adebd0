package common

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrorGroup is an errgroup.Group whose goroutines recover from panics. A
// recovered panic is logged with its stack and returned from Wait; like any
// other error it cancels the group's context.
type ErrorGroup struct {
	*errgroup.Group
	log logrus.FieldLogger
}

// NewErrorGroup returns a group and the context it cancels on the first error.
func NewErrorGroup(ctx context.Context, log logrus.FieldLogger) (*ErrorGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &ErrorGroup{Group: g, log: log}, ctx
}

// Go runs f in a new goroutine. fields are attached to the panic report.
func (g *ErrorGroup) Go(f func() error, fields logrus.Fields) {
	g.Group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				g.log.WithFields(fields).
					WithField("stack", string(debug.Stack())).
					Errorf("recovered from panic: %v", r)
				err = fmt.Errorf("panic occurred: %v", r)
			}
		}()

		return f()
	})
}
