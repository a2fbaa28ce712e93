// Package handoff coordinates help requests between an automated agent
// and a human companion. The agent files a request against a session;
// the human sees it in term-assist, attaches, works, and marks it done,
// optionally leaving a response for the agent.
//
// All state lives in tmux session options, so both sides observe the
// same record without files or sockets:
//
//	@term_cli_request   base64(CBOR{message, created}); present means pending
//	@term_cli_response  plain response text from the human
//	@term_cli_detached  "1", set by the detach hook term-assist installs
package handoff

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

// Session options carrying handoff state.
const (
	RequestOption  = "@term_cli_request"
	ResponseOption = "@term_cli_response"
	DetachedOption = "@term_cli_detached"
)

// DefaultMessage is used when the agent files a request without one.
const DefaultMessage = "The agent needs your help in this session"

// Record is the persisted request. Stored as base64-wrapped CBOR so
// arbitrary message text survives the option round-trip byte for byte.
type Record struct {
	Message   string    `cbor:"1,keyasint"`
	CreatedAt time.Time `cbor:"2,keyasint"`
}

func encodeRecord(r Record) (string, error) {
	raw, err := cbor.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding request record: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeRecord(value string) (Record, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return Record{}, fmt.Errorf("corrupt request record: %w", err)
	}
	var r Record
	if err := cbor.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("corrupt request record: %w", err)
	}
	return r, nil
}

// Coordinator runs the request state machine for sessions on one
// server.
type Coordinator struct {
	Server       *tmux.Server
	Clock        clock.Clock
	PollInterval time.Duration
}

func (c *Coordinator) poll() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return 250 * time.Millisecond
}

// Request files a help request. At most one request may be pending per
// session, so filing while one is outstanding fails instead of
// overwriting it. Stale response and detached state from earlier
// requests is cleared so the new request starts clean.
func (c *Coordinator) Request(sessionName, message string) error {
	pending, err := c.Pending(sessionName)
	if err != nil {
		return err
	}
	if pending {
		return cli.InvalidInputf("Session '%s' already has a pending request", sessionName)
	}
	if message == "" {
		message = DefaultMessage
	}
	encoded, err := encodeRecord(Record{Message: message, CreatedAt: c.Clock.Now()})
	if err != nil {
		return err
	}
	if err := c.Server.SetOption(sessionName, RequestOption, encoded); err != nil {
		return err
	}
	if err := c.Server.UnsetOption(sessionName, ResponseOption); err != nil {
		return err
	}
	return c.Server.UnsetOption(sessionName, DetachedOption)
}

// Pending reports whether the session has an outstanding request.
func (c *Coordinator) Pending(sessionName string) (bool, error) {
	value, err := c.Server.GetOption(sessionName, RequestOption)
	if err != nil {
		return false, err
	}
	return value != "", nil
}

// Status returns the pending request, or nil when there is none.
func (c *Coordinator) Status(sessionName string) (*Record, error) {
	value, err := c.Server.GetOption(sessionName, RequestOption)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	record, err := decodeRecord(value)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Cancel withdraws the pending request and any partial response. It is
// an error to cancel when nothing is pending.
func (c *Coordinator) Cancel(sessionName string) error {
	pending, err := c.Pending(sessionName)
	if err != nil {
		return err
	}
	if !pending {
		return fmt.Errorf("no pending request for session '%s'", sessionName)
	}
	if err := c.Server.UnsetOption(sessionName, RequestOption); err != nil {
		return err
	}
	if err := c.Server.UnsetOption(sessionName, ResponseOption); err != nil {
		return err
	}
	return c.Server.UnsetOption(sessionName, DetachedOption)
}

// Done completes the pending request on behalf of the human. response
// may be empty. Completing when nothing is pending is a no-op, so a
// human who already finished can run it again safely. Any stale
// response from an earlier request is cleared when no new one is
// given.
func (c *Coordinator) Done(sessionName, response string) error {
	if response != "" {
		if err := c.Server.SetOption(sessionName, ResponseOption, response); err != nil {
			return err
		}
	} else if err := c.Server.UnsetOption(sessionName, ResponseOption); err != nil {
		return err
	}
	if err := c.Server.UnsetOption(sessionName, RequestOption); err != nil {
		return err
	}
	return c.Server.UnsetOption(sessionName, DetachedOption)
}

// WaitOutcome says how a Wait ended, short of error.
type WaitOutcome int

const (
	// WaitCompleted means the human marked the request done.
	WaitCompleted WaitOutcome = iota
	// WaitDetached means the human detached without completing it.
	// The request stays pending so the agent can wait again or
	// escalate.
	WaitDetached
)

// WaitResult reports a finished Wait.
type WaitResult struct {
	Outcome  WaitOutcome
	Response string
	Elapsed  time.Duration
}

// Wait blocks until the pending request is completed, the human
// detaches, or the timeout elapses. It is invalid input to wait when
// nothing is pending.
//
// Detach is observed two ways: the detach hook's session option, and
// the attached-client count dropping to zero. On detach the flag is
// cleared so a subsequent Wait blocks normally, but the request record
// is left in place.
func (c *Coordinator) Wait(sessionName string, timeout time.Duration) (*WaitResult, error) {
	if timeout < 0 {
		return nil, cli.InvalidInputf("timeout must be non-negative")
	}
	record, err := c.Status(sessionName)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, cli.InvalidInputf("No pending request for session '%s'", sessionName)
	}

	deadline := c.Clock.Now().Add(timeout)
	wasAttached, err := c.Server.SessionAttached(sessionName)
	if err != nil {
		return nil, err
	}

	for {
		pending, err := c.Pending(sessionName)
		if err != nil {
			return nil, err
		}
		if !pending {
			response, err := c.Server.GetOption(sessionName, ResponseOption)
			if err != nil {
				return nil, err
			}
			if err := c.Server.UnsetOption(sessionName, ResponseOption); err != nil {
				return nil, err
			}
			return &WaitResult{
				Outcome:  WaitCompleted,
				Response: response,
				Elapsed:  c.Clock.Now().Sub(record.CreatedAt),
			}, nil
		}

		detached, err := c.detachObserved(sessionName, &wasAttached)
		if err != nil {
			return nil, err
		}
		if detached {
			if err := c.Server.UnsetOption(sessionName, DetachedOption); err != nil {
				return nil, err
			}
			return &WaitResult{
				Outcome: WaitDetached,
				Elapsed: c.Clock.Now().Sub(record.CreatedAt),
			}, nil
		}

		if !c.Clock.Now().Before(deadline) {
			return nil, cli.Timeoutf("Timeout: no response after %.1fs", timeout.Seconds())
		}
		c.Clock.Sleep(c.poll())
	}
}

func (c *Coordinator) detachObserved(sessionName string, wasAttached *bool) (bool, error) {
	flag, err := c.Server.GetOption(sessionName, DetachedOption)
	if err != nil {
		return false, err
	}
	if flag == "1" {
		return true, nil
	}
	attached, err := c.Server.SessionAttached(sessionName)
	if err != nil {
		return false, err
	}
	if *wasAttached && !attached {
		return true, nil
	}
	*wasAttached = attached
	return false, nil
}
