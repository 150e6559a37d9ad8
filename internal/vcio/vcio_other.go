//go:build !linux

package vcio

import "vcmailbox/mailbox"

type Transport struct{}

func Open(string) (*Transport, error) { return nil, ErrUnsupported }

func (*Transport) Exchange(mailbox.Channel, uint32, []byte) (uint32, error) {
	return 0, ErrUnsupported
}

func (*Transport) Close() error { return nil }
