package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lexiduel/lexiduel/internal/model"
	"github.com/lexiduel/lexiduel/internal/services/match"
	"github.com/lexiduel/lexiduel/internal/services/matchmaking"
	"github.com/lexiduel/lexiduel/internal/services/practice"
	"github.com/lexiduel/lexiduel/internal/services/social"
	"github.com/lexiduel/lexiduel/internal/ws/wserr"
)

// Dispatcher routes inbound messages to the owning service. It is the
// protocol boundary: unmarshalling, validation, identity binding, and
// panic containment all happen here so services only ever see well-formed
// requests.
type Dispatcher struct {
	registry *Registry
	queue    *matchmaking.Queue
	matches  *match.Controller
	practice *practice.Service
	social   *social.Service
	logger   *slog.Logger
}

// NewDispatcher creates a message dispatcher
func NewDispatcher(
	registry *Registry,
	queue *matchmaking.Queue,
	matches *match.Controller,
	practiceSvc *practice.Service,
	socialSvc *social.Service,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		queue:    queue,
		matches:  matches,
		practice: practiceSvc,
		social:   socialSvc,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch handles one raw inbound frame from a connection. A panic in a
// handler is contained to this message; the connection survives.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic handling message",
				slog.String("conn_id", conn.ID()),
				slog.Any("panic", r),
			)
			_ = conn.Send(model.NewErrorMsg(wserr.CodeInternalError, "Internal server error"))
		}
	}()

	var msg model.Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.sendError(conn, model.ErrMalformedMessage)
		return
	}
	if err := msg.Validate(); err != nil {
		d.sendError(conn, err)
		return
	}

	// First valid message binds the connection to its player identity.
	// Later messages must not switch identity on the same connection.
	if bound := conn.PlayerID(); bound == "" {
		d.registry.Register(msg.PlayerID, conn)
	} else if bound != msg.PlayerID {
		d.sendError(conn, model.ErrMalformedMessage)
		return
	}

	switch msg.Type {
	case model.InJoinQueue:
		d.queue.Join(ctx, msg.PlayerID)
	case model.InLeaveQueue:
		if err := d.queue.Leave(msg.PlayerID); err != nil {
			d.sendError(conn, err)
		}
	case model.InSubmitWord:
		d.handleSubmitWord(ctx, conn, &msg)
	case model.InStartPractice:
		if _, err := d.practice.Start(ctx, msg.PlayerID); err != nil {
			d.sendError(conn, err)
		}
	case model.InPracticeReroll:
		if _, err := d.practice.Reroll(msg.PlayerID); err != nil {
			d.sendError(conn, err)
		}
	case model.InSubmitPracticeWord:
		d.handleSubmitPracticeWord(conn, &msg)
	case model.InEndPractice:
		if _, _, err := d.practice.End(ctx, msg.PlayerID); err != nil {
			d.sendError(conn, err)
		}
	case model.InFriendInvite:
		if err := d.social.Invite(msg.PlayerID, msg.ToPlayerID); err != nil {
			d.sendError(conn, err)
		}
	case model.InFriendInviteAccept:
		if _, err := d.social.Accept(ctx, msg.PlayerID, msg.ToPlayerID); err != nil {
			d.sendError(conn, err)
		}
	default:
		d.sendError(conn, model.ErrUnknownMessageType)
	}
}

// handleSubmitWord routes a match submission. Word rejections are a normal
// WORD_RESULT with a reason, not an ERROR frame.
func (d *Dispatcher) handleSubmitWord(ctx context.Context, conn Conn, msg *model.Inbound) {
	result, err := d.matches.SubmitWord(ctx, msg.PlayerID, msg.MatchID, msg.Word)
	if err != nil {
		if reason := wserr.Rejection(err); reason != "" {
			_ = conn.Send(model.WordResultMsg{
				Type:    model.OutWordResult,
				Success: false,
				Reason:  reason,
				Word:    msg.Word,
			})
			return
		}
		d.sendError(conn, err)
		return
	}

	_ = conn.Send(model.WordResultMsg{
		Type:       model.OutWordResult,
		Success:    true,
		Word:       result.Word,
		BaseScore:  result.BaseScore,
		BonusScore: result.BonusScore,
		TotalScore: result.TotalScore,
		ComboLevel: result.Streak,
	})
	d.registry.SendToPlayer(result.OpponentID, model.NewOpponentSubmittedMsg(result.Word, msg.PlayerID))

	if result.Exhausted {
		if _, err := d.matches.ForceFinalize(ctx, msg.MatchID); err != nil {
			d.logger.Error("finalizing exhausted match failed",
				slog.String("match_id", string(msg.MatchID)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// handleSubmitPracticeWord routes a practice submission
func (d *Dispatcher) handleSubmitPracticeWord(conn Conn, msg *model.Inbound) {
	result, err := d.practice.SubmitWord(msg.PlayerID, msg.Word)
	if err != nil {
		if reason := wserr.Rejection(err); reason != "" {
			_ = conn.Send(model.PracticeWordResultMsg{
				Type:    model.OutPracticeWordResult,
				Success: false,
				Reason:  reason,
				Word:    msg.Word,
			})
			return
		}
		d.sendError(conn, err)
		return
	}

	_ = conn.Send(model.PracticeWordResultMsg{
		Type:       model.OutPracticeWordResult,
		Success:    true,
		Word:       result.Word,
		BaseScore:  result.BaseScore,
		BonusScore: result.BonusScore,
		TotalScore: result.TotalScore,
		ComboLevel: result.Streak,
		FinalScore: result.FinalScore,
	})
}

// sendError maps an error to its wire code and message and sends it
func (d *Dispatcher) sendError(conn Conn, err error) {
	_ = conn.Send(model.NewErrorMsg(wserr.Code(err), wserr.Message(err)))
}