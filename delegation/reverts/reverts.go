// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// ErrRevert is a rejected request. Nothing of the invocation is kept.
type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func Errorf(format string, args ...any) *ErrRevert {
	return New(fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Error() string {
	return e.message
}

func IsRevertErr(err any) bool {
	var ve *ErrRevert
	return as(err, &ve)
}

// ErrConflict rejects a request while a global operation is in progress.
type ErrConflict struct {
	message string
}

func NewConflict(message string) *ErrConflict {
	return &ErrConflict{message: message}
}

func (e *ErrConflict) Error() string {
	return e.message
}

func IsConflictErr(err any) bool {
	var ce *ErrConflict
	return as(err, &ce)
}

// ErrInvariant is a broken ledger invariant. It is a defect, never a user error.
type ErrInvariant struct {
	message string
}

func NewInvariant(format string, args ...any) *ErrInvariant {
	return &ErrInvariant{message: fmt.Sprintf(format, args...)}
}

func (e *ErrInvariant) Error() string {
	return "invariant violation: " + e.message
}

func IsInvariantErr(err any) bool {
	var ie *ErrInvariant
	return as(err, &ie)
}

func as[T error](err any, target *T) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	return errors.As(e, target)
}
