// Package present renders event records received from a hub.
package present

import "github.com/amenzhinsky/iothub-d2c/consumer"

// Multi fans records out to all the given presenters in order.
type Multi []consumer.Presenter

func (m Multi) Present(rec *consumer.EventRecord, showProperties bool) {
	for _, p := range m {
		p.Present(rec, showProperties)
	}
}
