package engine

import "github.com/sirupsen/logrus"

func (e *Engine) logEntry() *logrus.Entry {
	return e.log.WithComponent("engine")
}

func (e *Engine) logPosition(tr *TrackedPosition) *logrus.Entry {
	return e.logEntry().WithFields(logrus.Fields{
		"ticket": tr.Ticket,
		"symbol": tr.Symbol,
		"phase":  tr.Phase,
	})
}
