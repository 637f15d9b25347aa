package telefunken

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly one.
var (
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("state conflict")
	ErrNotFound      = errors.New("not found")
)

// Validation errors.
var (
	ErrNotEnoughPlayers = invalid("at least 2 players are required")
	ErrTooManyPlayers   = invalid("too many players")
	ErrDuplicatePlayer  = invalid("duplicate player")
	ErrBlankPlayer      = invalid("player name is empty")
	ErrNegativeTokens   = invalid("token count must not be negative")
	ErrInvalidRank      = invalid("invalid card rank")
	ErrNegativeCount    = invalid("card count must not be negative")
	ErrCountTooLarge    = invalid("card count exceeds the deck")
	ErrInvalidAction    = invalid("malformed action")
	ErrInvalidStatus    = invalid("unknown player status")
)

// State conflicts. Messages name the invariant that blocked the operation.
var (
	ErrRoundResolved       = conflict("round already resolved")
	ErrTokenBudgetExceeded = conflict("token budget exceeded")
	ErrNothingToApprove    = conflict("nothing to approve")
	ErrSelfApproval        = conflict("claimant cannot approve their own claim")
	ErrClaimantDeclaration = conflict("claimant cannot declare cards")
	ErrAlreadyDeclared     = conflict("player has already declared in this round and cannot claim it")
	ErrSessionCompleted    = conflict("session already completed")
)

// Lookup failures.
var (
	ErrPlayerNotFound = notFound("player is not a participant")
)

func invalid(msg string) error  { return fmt.Errorf("%w: %s", ErrValidation, msg) }
func conflict(msg string) error { return fmt.Errorf("%w: %s", ErrStateConflict, msg) }
func notFound(msg string) error { return fmt.Errorf("%w: %s", ErrNotFound, msg) }
