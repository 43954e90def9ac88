// Package browser exposes Xiaohongshu publishing as a single agent tool
// dispatching on an action argument: connect, login, publish, confirm,
// close. A state machine enforces the ordering so the model cannot publish
// before login or submit the same note twice.
package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/logging"
	"github.com/redpen-ai/redpen/pkg/types"
)

// ToolName is the registered name of the browser tool.
const ToolName = "xhs_browser"

type arguments struct {
	Action  Action   `json:"action"`
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Images  []string `json:"images,omitempty"`
}

// Tool drives the publish workflow through a Driver.
type Tool struct {
	driver  Driver
	machine *Machine
	log     *logging.Logger
}

// New creates the browser tool around the given driver.
func New(driver Driver) *Tool {
	log, _ := logging.New("browser")
	return &Tool{driver: driver, machine: NewMachine(), log: log}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Operate the Xiaohongshu creator site through a real browser. Actions:\n" +
		"- connect: launch the browser and open the creator site\n" +
		"- login: restore a saved session, or wait for the user to log in by hand\n" +
		"- publish: fill and submit the approved note (title, content, images)\n" +
		"- confirm: check whether the submitted note is live\n" +
		"- close: shut the browser down\n" +
		"Actions must run in order; close is valid at any point."
}

func (t *Tool) Schema() map[string]interface{} {
	return tools.ObjectSchema(map[string]interface{}{
		"action": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"connect", "login", "publish", "confirm", "close"},
			"description": "Browser action to perform",
		},
		"title": map[string]interface{}{
			"type":        "string",
			"description": "Note title (publish only)",
		},
		"content": map[string]interface{}{
			"type":        "string",
			"description": "Note body (publish only)",
		},
		"images": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Absolute paths of images to upload (publish only)",
		},
	}, []string{"action"})
}

// InvokePolicy opts the browser out of invoker timeout and retry: the manual
// login wait legitimately runs for minutes, and replaying a browser action
// after a partial failure could double-submit.
func (t *Tool) InvokePolicy() tools.Policy {
	return tools.Policy{NoTimeout: true, NoRetry: true}
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in arguments
	if err := json.Unmarshal(args, &in); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "invalid browser arguments: %v", err)
	}

	if err := t.machine.Guard(in.Action); err != nil {
		return "", err
	}

	switch in.Action {
	case ActionConnect:
		return t.connect(ctx)
	case ActionLogin:
		return t.login(ctx)
	case ActionPublish:
		return t.publish(ctx, in)
	case ActionConfirm:
		return t.confirm(ctx)
	case ActionClose:
		return t.close(ctx)
	default:
		return "", types.NewToolError(types.ErrKindNotFound, "unknown browser action %q", in.Action)
	}
}

func (t *Tool) connect(ctx context.Context) (string, error) {
	if t.machine.State() != StateDisconnected {
		return "Browser already connected.", nil
	}
	if err := t.driver.Open(ctx); err != nil {
		return "", types.NewToolError(types.ErrKindFatalAutomation, "launching browser: %v", err)
	}
	t.machine.Apply(ActionConnect)
	t.log.Infof("browser connected")
	return "Browser launched and connected to the creator site.", nil
}

func (t *Tool) login(ctx context.Context) (string, error) {
	if t.machine.State() != StateConnected {
		// Already authenticated (or further along); login is idempotent.
		return "Already logged in.", nil
	}

	ok, err := t.driver.RestoreSession(ctx)
	if err != nil {
		return "", types.NewToolError(types.ErrKindFatalAutomation, "restoring session: %v", err)
	}
	if ok {
		t.machine.Apply(ActionLogin)
		t.log.Infof("login restored from saved session")
		return "Logged in via saved session.", nil
	}

	t.log.Infof("saved session invalid, waiting for manual login")
	if err := t.driver.AwaitLogin(ctx); err != nil {
		return "", types.NewToolError(types.ErrKindFatalAutomation, "manual login not completed: %v", err)
	}
	t.machine.Apply(ActionLogin)
	t.log.Infof("manual login completed")
	return "Login completed in the browser; session saved for next time.", nil
}

func (t *Tool) publish(ctx context.Context, in arguments) (string, error) {
	if in.Title == "" || in.Content == "" {
		return "", types.NewToolError(types.ErrKindIO, "publish requires title and content")
	}

	note := Note{Title: in.Title, Body: in.Content, Media: in.Images}
	if err := t.driver.Publish(ctx, note); err != nil {
		return "", types.NewToolError(types.ErrKindFatalAutomation, "publishing note: %v", err)
	}
	t.machine.Apply(ActionPublish)
	t.log.Infof("note submitted: %q (%d images)", in.Title, len(in.Images))
	return "Note submitted. Use the confirm action to verify it is live.", nil
}

// confirm is advisory: a failed or negative check produces a warning in the
// payload, never an error, because the note may already be live and there is
// no rollback.
func (t *Tool) confirm(ctx context.Context) (string, error) {
	live, detail, err := t.driver.ConfirmPublished(ctx)
	if err != nil {
		t.log.Warnf("confirm check failed: %v", err)
		return fmt.Sprintf("Warning: could not verify publication (%v). The note may still be live; check the creator page by hand.", err), nil
	}
	if !live {
		t.log.Warnf("confirm check negative: %s", detail)
		return fmt.Sprintf("Warning: no confirmation of publication found (%s). Check the creator page by hand.", detail), nil
	}
	return fmt.Sprintf("Note confirmed live: %s", detail), nil
}

func (t *Tool) close(ctx context.Context) (string, error) {
	if t.machine.State() == StateDisconnected {
		return "Browser already closed.", nil
	}
	if err := t.driver.Close(ctx); err != nil {
		t.log.Warnf("browser close: %v", err)
	}
	t.machine.Apply(ActionClose)
	t.log.Infof("browser closed")
	return "Browser closed.", nil
}

// CloseSession shuts the browser down at end of task.
func (t *Tool) CloseSession(ctx context.Context) error {
	if t.machine.State() == StateDisconnected {
		return nil
	}
	err := t.driver.Close(ctx)
	t.machine.Apply(ActionClose)
	return err
}
