// Package mcp exposes lingoflow wizards as MCP (Model Context Protocol) tools
// so an agent can walk a learner through registration, password recovery or
// checkout one step at a time.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/domain/checkout"
	"github.com/felixgeelhaar/lingoflow/internal/domain/recovery"
	"github.com/felixgeelhaar/lingoflow/internal/domain/registration"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// redacted replaces passwords and one-time codes in tool output.
const redacted = "********"

// Error kinds reported in StepError.Kind.
const (
	ErrorKindValidation = "validation"
	ErrorKindGuard      = "guard"
	ErrorKindDomain     = "domain"
	ErrorKindTransport  = "transport"
	ErrorKindBusy       = "busy"
	ErrorKindState      = "state"
	ErrorKindConfirm    = "confirmation_required"
)

// VersionInfo contains version information for the MCP server.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// StartInput is the input for the lingoflow_start tool.
type StartInput struct {
	Wizard    string `json:"wizard" jsonschema:"required,description=Wizard to run: registration, recovery or checkout"`
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Resume a saved session instead of starting a new one"`
}

// SessionInput identifies an open session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"required,description=Session id returned by lingoflow_start"`
}

// UpdateInput is the input for the lingoflow_update tool.
type UpdateInput struct {
	SessionID string         `json:"session_id" jsonschema:"required,description=Session id returned by lingoflow_start"`
	Values    map[string]any `json:"values" jsonschema:"required,description=Field values for the current step keyed by field name"`
}

// SubmitInput is the input for the lingoflow_submit tool.
type SubmitInput struct {
	SessionID string `json:"session_id" jsonschema:"required,description=Session id returned by lingoflow_start"`
	Confirm   bool   `json:"confirm" jsonschema:"required,description=Must be true to submit (creates an account, resets a password or charges a card)"`
}

// FieldOutput describes one input of the current step.
type FieldOutput struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
	Hint    string   `json:"hint,omitempty"`
	Value   any      `json:"value,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// StepError describes why the last operation failed.
type StepError struct {
	Kind     string            `json:"kind"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// StepOutput is the state of a session after a tool call.
type StepOutput struct {
	Wizard    string         `json:"wizard"`
	SessionID string         `json:"session_id"`
	Step      string         `json:"step"`
	Index     int            `json:"index"`
	Steps     []string       `json:"steps"`
	State     string         `json:"state"`
	Terminal  bool           `json:"terminal"`
	Completed bool           `json:"completed"`
	Resumed   bool           `json:"resumed,omitempty"`
	Attempts  int            `json:"attempts,omitempty"`
	Fields    []FieldOutput  `json:"fields"`
	Warning   string         `json:"warning,omitempty"`
	Error     *StepError     `json:"error,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
}

// WizardsInput is the input for the lingoflow_wizards tool.
type WizardsInput struct{}

// WizardsOutput lists the available wizards.
type WizardsOutput struct {
	Wizards []string `json:"wizards"`
}

// PlansInput is the input for the lingoflow_plans tool.
type PlansInput struct{}

// PlanOutput is a purchasable plan.
type PlanOutput struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Interval string   `json:"interval"`
	Features []string `json:"features,omitempty"`
}

// PlansOutput is the output for the lingoflow_plans tool.
type PlansOutput struct {
	Plans []PlanOutput `json:"plans"`
}

// DraftsInput is the input for the lingoflow_drafts tool.
type DraftsInput struct {
	Wizard string `json:"wizard,omitempty" jsonschema:"description=Only list drafts of this wizard"`
}

// DraftOutput is a saved session.
type DraftOutput struct {
	Wizard    string `json:"wizard"`
	SessionID string `json:"session_id"`
	Step      int    `json:"step"`
	UpdatedAt string `json:"updated_at"`
}

// DraftsOutput is the output for the lingoflow_drafts tool.
type DraftsOutput struct {
	Drafts []DraftOutput `json:"drafts"`
}

// DiscardInput is the input for the lingoflow_discard tool.
type DiscardInput struct {
	Wizard    string `json:"wizard" jsonschema:"required,description=Wizard the session belongs to"`
	SessionID string `json:"session_id" jsonschema:"required,description=Session to discard"`
}

// DiscardOutput is the output for the lingoflow_discard tool.
type DiscardOutput struct {
	Discarded bool `json:"discarded"`
}

// StatusInput is the input for the lingoflow_status tool.
type StatusInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Describe this session; omit for server status"`
}

// StatusOutput is the output for the lingoflow_status tool.
type StatusOutput struct {
	Version      string      `json:"version"`
	Commit       string      `json:"commit,omitempty"`
	BuildDate    string      `json:"build_date,omitempty"`
	SignedIn     bool        `json:"signed_in"`
	OpenSessions int         `json:"open_sessions"`
	Session      *StepOutput `json:"session,omitempty"`
}

// WhoAmIInput is the input for the lingoflow_whoami tool.
type WhoAmIInput struct{}

// WhoAmIOutput is the signed-in learner.
type WhoAmIOutput struct {
	SignedIn  bool   `json:"signed_in"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Language  string `json:"language,omitempty"`
	Level     string `json:"level,omitempty"`
}

// RegisterAll registers all lingoflow tools with the MCP server.
func RegisterAll(srv *mcp.Server, lingoflow *app.Lingoflow, sessions *Sessions, versionInfo VersionInfo) {
	// Discovery
	registerWizardsTool(srv)
	registerPlansTool(srv, lingoflow)
	registerStatusTool(srv, lingoflow, sessions, versionInfo)
	registerWhoAmITool(srv, lingoflow)

	// Wizard sessions
	registerStartTool(srv, sessions)
	registerUpdateTool(srv, sessions)
	registerAdvanceTool(srv, sessions)
	registerRetreatTool(srv, sessions)
	registerSubmitTool(srv, sessions)
	registerResendCodeTool(srv, lingoflow, sessions)

	// Drafts
	registerDraftsTool(srv, lingoflow)
	registerDiscardTool(srv, sessions)
}

func registerWizardsTool(srv *mcp.Server) {
	srv.Tool("lingoflow_wizards").
		Description("List the wizards that can be started with lingoflow_start.").
		ReadOnly().
		Handler(func(_ context.Context, _ WizardsInput) (*WizardsOutput, error) {
			return &WizardsOutput{Wizards: app.Wizards()}, nil
		})
}

func registerPlansTool(srv *mcp.Server, lingoflow *app.Lingoflow) {
	srv.Tool("lingoflow_plans").
		Description("List the subscription plans offered in the checkout wizard.").
		ReadOnly().
		Handler(func(ctx context.Context, _ PlansInput) (*PlansOutput, error) {
			catalog, err := lingoflow.Catalog(ctx)
			if err != nil {
				return nil, err
			}
			out := &PlansOutput{Plans: make([]PlanOutput, 0, len(catalog.Plans()))}
			for _, p := range catalog.Plans() {
				out.Plans = append(out.Plans, PlanOutput{
					ID:       p.ID,
					Name:     p.Name,
					Price:    checkout.FormatPrice(p),
					Interval: p.Interval,
					Features: p.Features,
				})
			}
			return out, nil
		})
}

func registerStatusTool(srv *mcp.Server, lingoflow *app.Lingoflow, sessions *Sessions, versionInfo VersionInfo) {
	srv.Tool("lingoflow_status").
		Description("Get server status, or the current step of a session when session_id is given.").
		ReadOnly().
		Handler(func(_ context.Context, in StatusInput) (*StatusOutput, error) {
			if err := ValidateStatusInput(&in); err != nil {
				return nil, err
			}
			out := &StatusOutput{
				Version:      versionInfo.Version,
				Commit:       versionInfo.Commit,
				BuildDate:    versionInfo.BuildDate,
				OpenSessions: sessions.Len(),
			}
			if _, err := lingoflow.Tokens().Token(); err == nil {
				out.SignedIn = true
			}
			if in.SessionID != "" {
				sess, err := sessions.Get(in.SessionID)
				if err != nil {
					return nil, err
				}
				out.Session = stepOutput(sess, nil)
			}
			return out, nil
		})
}

func registerWhoAmITool(srv *mcp.Server, lingoflow *app.Lingoflow) {
	srv.Tool("lingoflow_whoami").
		Description("Show the signed-in learner. Checkout billing requires a signed-in learner.").
		ReadOnly().
		Handler(func(ctx context.Context, _ WhoAmIInput) (*WhoAmIOutput, error) {
			u, err := lingoflow.WhoAmI(ctx)
			if errors.Is(err, ports.ErrUnauthorized) || errors.Is(err, ports.ErrNoToken) {
				return &WhoAmIOutput{SignedIn: false}, nil
			}
			if err != nil {
				return nil, err
			}
			return &WhoAmIOutput{
				SignedIn:  true,
				Email:     u.Email,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Language:  u.Language,
				Level:     u.Level,
			}, nil
		})
}

func registerStartTool(srv *mcp.Server, sessions *Sessions) {
	srv.Tool("lingoflow_start").
		Description("Start a wizard session, or resume a saved one by session_id. Returns the first step and its fields.").
		Handler(func(ctx context.Context, in StartInput) (*StepOutput, error) {
			if err := ValidateStartInput(&in); err != nil {
				return nil, err
			}
			sess, resumed, err := sessions.Start(ctx, in.Wizard, in.SessionID)
			if err != nil {
				return nil, err
			}
			out := stepOutput(sess, nil)
			out.Resumed = resumed
			if !out.Completed {
				if d, err := sess.CanEnter(ctx, wizard.StepID(out.Step)); err == nil && d.Warning != "" && out.Warning == "" {
					out.Warning = d.Warning
				}
			}
			return out, nil
		})
}

func registerUpdateTool(srv *mcp.Server, sessions *Sessions) {
	srv.Tool("lingoflow_update").
		Description("Set field values on the current step. Values are kept in the draft even if they are invalid; errors are reported per field.").
		Handler(func(ctx context.Context, in UpdateInput) (*StepOutput, error) {
			if err := ValidateUpdateInput(&in); err != nil {
				return nil, err
			}
			sess, err := sessions.Get(in.SessionID)
			if err != nil {
				return nil, err
			}
			err = sess.Update(ctx, wizard.Patch(in.Values))
			return stepOutput(sess, err), nil
		})
}

func registerAdvanceTool(srv *mcp.Server, sessions *Sessions) {
	srv.Tool("lingoflow_advance").
		Description("Validate the current step and move to the next one. Use lingoflow_submit on the last step.").
		Handler(func(ctx context.Context, in SessionInput) (*StepOutput, error) {
			sess, err := sessionFor(sessions, &in)
			if err != nil {
				return nil, err
			}
			err = sess.Advance(ctx)
			return stepOutput(sess, err), nil
		})
}

func registerRetreatTool(srv *mcp.Server, sessions *Sessions) {
	srv.Tool("lingoflow_retreat").
		Description("Go back to the previous step. Entered values are kept.").
		Handler(func(ctx context.Context, in SessionInput) (*StepOutput, error) {
			sess, err := sessionFor(sessions, &in)
			if err != nil {
				return nil, err
			}
			err = sess.Retreat(ctx)
			return stepOutput(sess, err), nil
		})
}

func registerSubmitTool(srv *mcp.Server, sessions *Sessions) {
	srv.Tool("lingoflow_submit").
		Description("Submit the last step of a wizard. REQUIRES confirm=true. A failed submission keeps the draft and can be retried.").
		Destructive().
		Handler(func(ctx context.Context, in SubmitInput) (*StepOutput, error) {
			if err := ValidateSessionInput(&SessionInput{SessionID: in.SessionID}); err != nil {
				return nil, err
			}
			sess, err := sessions.Get(in.SessionID)
			if err != nil {
				return nil, err
			}
			if !in.Confirm {
				out := stepOutput(sess, nil)
				out.Error = &StepError{Kind: ErrorKindConfirm, Message: "Set confirm to true to submit"}
				return out, nil
			}
			_, err = sess.Submit(ctx)
			out := stepOutput(sess, err)
			if err == nil {
				sessions.Release(in.SessionID)
			}
			return out, nil
		})
}

func registerResendCodeTool(srv *mcp.Server, lingoflow *app.Lingoflow, sessions *Sessions) {
	srv.Tool("lingoflow_resend_code").
		Description("Send a new e-mail verification code. Only valid on the verify step of a registration session.").
		Handler(func(ctx context.Context, in SessionInput) (*StepOutput, error) {
			sess, err := sessionFor(sessions, &in)
			if err != nil {
				return nil, err
			}
			reg, ok := sess.(controllerSession[registration.Outcome])
			if !ok {
				return nil, fmt.Errorf("session %s is a %s session, codes are only sent during registration",
					in.SessionID, sess.Status().Wizard)
			}
			err = lingoflow.ResendCode(ctx, reg.Controller)
			return stepOutput(sess, err), nil
		})
}

func registerDraftsTool(srv *mcp.Server, lingoflow *app.Lingoflow) {
	srv.Tool("lingoflow_drafts").
		Description("List saved wizard sessions that can be resumed, most recent first.").
		ReadOnly().
		Handler(func(ctx context.Context, in DraftsInput) (*DraftsOutput, error) {
			if err := ValidateDraftsInput(&in); err != nil {
				return nil, err
			}
			snaps, err := lingoflow.Drafts(ctx, in.Wizard)
			if err != nil {
				return nil, err
			}
			out := &DraftsOutput{Drafts: make([]DraftOutput, 0, len(snaps))}
			for _, s := range snaps {
				out.Drafts = append(out.Drafts, DraftOutput{
					Wizard:    s.Wizard,
					SessionID: s.SessionID,
					Step:      s.Current,
					UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
				})
			}
			return out, nil
		})
}

func registerDiscardTool(srv *mcp.Server, sessions *Sessions) {
	srv.Tool("lingoflow_discard").
		Description("Close a session and delete its saved draft.").
		Destructive().
		Handler(func(ctx context.Context, in DiscardInput) (*DiscardOutput, error) {
			if err := ValidateDiscardInput(&in); err != nil {
				return nil, err
			}
			err := sessions.Discard(ctx, in.Wizard, in.SessionID)
			if errors.Is(err, wizard.ErrSnapshotNotFound) {
				return &DiscardOutput{Discarded: false}, nil
			}
			if err != nil {
				return nil, err
			}
			return &DiscardOutput{Discarded: true}, nil
		})
}

func sessionFor(sessions *Sessions, in *SessionInput) (session, error) {
	if err := ValidateSessionInput(in); err != nil {
		return nil, err
	}
	return sessions.Get(in.SessionID)
}

// stepOutput describes sess after an operation that returned opErr.
func stepOutput(sess session, opErr error) *StepOutput {
	st := sess.Status()
	out := &StepOutput{
		Wizard:    st.Wizard,
		SessionID: st.SessionID,
		Step:      string(st.Step),
		Index:     st.Index,
		Steps:     make([]string, 0, len(st.Steps)),
		State:     st.State,
		Completed: st.Completed,
		Attempts:  st.Attempts,
		Warning:   st.Warning,
		Error:     stepError(opErr),
	}
	for _, id := range st.Steps {
		out.Steps = append(out.Steps, string(id))
	}

	def, _ := sess.Definition(st.Step)
	out.Terminal = def.Terminal

	values, _ := wizard.Values(sess.CurrentData())
	out.Fields = make([]FieldOutput, 0, len(def.Form))
	for _, f := range def.Form {
		fo := FieldOutput{
			Name:    f.Name,
			Label:   f.Label,
			Kind:    string(f.Kind),
			Options: f.Options,
			Hint:    f.Hint,
			Value:   fieldValue(f, values[f.Name]),
		}
		if out.Error != nil {
			fo.Error = out.Error.Fields[f.Name]
		}
		out.Fields = append(out.Fields, fo)
	}

	if st.Completed {
		if r, ok := sess.Result(); ok {
			out.Result = resultOutput(r)
		}
	}
	return out
}

func fieldValue(f wizard.Field, v any) any {
	switch f.Kind {
	case wizard.KindSecret:
		if s, _ := v.(string); s != "" {
			return redacted
		}
		return nil
	case wizard.KindOTP:
		boxes, _ := v.([]any)
		for _, box := range boxes {
			if s, _ := box.(string); s != "" {
				return redacted
			}
		}
		return nil
	}
	return v
}

func stepError(err error) *StepError {
	if err == nil {
		return nil
	}

	var (
		verr *wizard.ValidationError
		gerr *wizard.GuardRejection
		derr *wizard.DomainError
		terr *wizard.TransportError
	)
	out := &StepError{Message: wizard.UserMessage(err)}
	switch {
	case errors.As(err, &verr):
		out.Kind = ErrorKindValidation
		out.Fields = verr.Fields
	case errors.As(err, &gerr):
		out.Kind = ErrorKindGuard
		out.Redirect = string(gerr.Redirect)
	case errors.As(err, &derr):
		out.Kind = ErrorKindDomain
	case errors.As(err, &terr):
		out.Kind = ErrorKindTransport
	case errors.Is(err, wizard.ErrBusy):
		out.Kind = ErrorKindBusy
	default:
		out.Kind = ErrorKindState
		out.Message = err.Error()
	}
	return out
}

func resultOutput(r any) map[string]any {
	switch v := r.(type) {
	case registration.Outcome:
		return map[string]any{"email": v.Email, "message": v.Message}
	case recovery.Outcome:
		return map[string]any{"email": v.Email}
	case checkout.Receipt:
		return map[string]any{
			"subscription_id": v.SubscriptionID,
			"plan_id":         v.PlanID,
			"status":          string(v.Status),
			"amount_cents":    v.AmountCents,
			"currency":        v.Currency,
		}
	default:
		return nil
	}
}
