package broker

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

const RetcodeDone = 10009

type TradeError struct {
	Retcode int
	Comment string
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("Отказ терминала: %s (code=%d)", e.Comment, e.Retcode)
}

func AsTradeError(err error) (*TradeError, bool) {
	var te *TradeError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if _, ok := AsTradeError(err); ok {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF")
}
