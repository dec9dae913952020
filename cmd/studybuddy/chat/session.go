package chatcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/dotdir"
	"github.com/papercomputeco/studybuddy/pkg/study"
	"github.com/papercomputeco/studybuddy/pkg/theme"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

const helpText = `Commands:
  /new               Start a new chat
  /history           List earlier chats about this document
  /load <id>         Continue an earlier chat
  /persona [key]     Show or change the tutor persona
  /web [on|off]      Toggle web search
  /exit              Quit`

// sessionRequest is what the user asked for on the command line.
type sessionRequest struct {
	documentID     string
	sessionID      string
	fresh          bool
	personaChanged bool
}

// chatSession ties a conversation to its document, the active chat pointer
// and the transcript recorder.
type chatSession struct {
	env      *cmdenv.Env
	dotdir   *dotdir.Manager
	conv     *study.Conversation
	pages    *study.Pages
	document *client.Document
	resumed  bool
	style    string
	markdown bool
}

// openSession resolves the document and session to chat about and builds the
// conversation. The active chat is resumed unless req points elsewhere.
func openSession(ctx context.Context, env *cmdenv.Env, rec *study.Recorder, req sessionRequest) (*chatSession, error) {
	s := &chatSession{
		env:    env,
		dotdir: dotdir.NewManager(),
		pages:  study.NewPages(),
	}

	tm := theme.NewManager(env.Auth, env.Client, nil, env.Logger)
	s.style = theme.GlamourStyle(tm.Current(theme.Preference(env.Config.UI.Theme)))

	documentID, sessionID := req.documentID, req.sessionID
	persona := env.Config.Chat.Persona
	fromActive := false

	if !req.fresh && sessionID == "" {
		active, err := s.dotdir.LoadActiveChat(env.ConfigDir)
		if err != nil {
			env.Logger.Warn("ignoring unreadable active chat", "error", err)
		}
		if active != nil && (documentID == "" || documentID == active.DocumentID) {
			documentID = active.DocumentID
			sessionID = active.SessionID
			fromActive = true
			if active.Persona != "" && !req.personaChanged {
				persona = active.Persona
			}
		}
	}

	if _, ok := client.LookupPersona(persona); !ok {
		return nil, fmt.Errorf("unknown persona %q", persona)
	}

	if documentID != "" {
		doc, err := env.Client.GetDocument(ctx, documentID)
		switch {
		case err != nil && fromActive && client.IsNotFound(err):
			env.Logger.Warn("document of the last chat is gone, starting a general chat", "document_id", documentID)
			documentID, sessionID = "", ""
		case err != nil:
			return nil, err
		case !doc.Status.Studyable():
			return nil, fmt.Errorf("%s is %s and cannot be studied yet", doc.Filename, doc.Status)
		default:
			s.document = doc
		}
	}

	s.conv = study.NewConversation(env.Client, documentID,
		study.WithPersona(persona),
		study.WithWebSearch(env.Config.Chat.WebSearch),
		study.WithPages(s.pages),
		study.WithLogger(env.Logger),
		study.OnTurn(func(t study.Turn) {
			rec.RecordTurn(ctx, t)
			s.save()
		}),
	)

	if sessionID != "" {
		err := s.load(ctx, sessionID)
		switch {
		case err != nil && fromActive:
			env.Logger.Warn("could not resume the last chat, starting a new one", "session_id", sessionID, "error", err)
		case err != nil:
			return nil, err
		default:
			s.resumed = true
		}
	}

	s.save()
	return s, nil
}

// findSession matches id, or a unique prefix of it, against the sessions
// about the current document.
func (s *chatSession) findSession(ctx context.Context, id string) (client.Session, error) {
	sessions, err := s.env.Client.ListSessions(ctx, s.conv.Snapshot().DocumentID)
	if err != nil {
		return client.Session{}, err
	}

	var matches []client.Session
	for _, sess := range sessions {
		if sess.ID == id {
			return sess, nil
		}
		if strings.HasPrefix(sess.ID, id) {
			matches = append(matches, sess)
		}
	}

	switch len(matches) {
	case 0:
		return client.Session{}, fmt.Errorf("no chat %q about this document", id)
	case 1:
		return matches[0], nil
	default:
		return client.Session{}, fmt.Errorf("%q matches %d chats, use more of the id", id, len(matches))
	}
}

func (s *chatSession) load(ctx context.Context, id string) error {
	sess, err := s.findSession(ctx, id)
	if err != nil {
		return err
	}
	return s.conv.Load(ctx, s.env.Client, sess)
}

// save points the active chat at the current conversation.
func (s *chatSession) save() {
	snap := s.conv.Snapshot()
	err := s.dotdir.SaveActiveChat(&dotdir.ActiveChat{
		SessionID:  snap.SessionID,
		DocumentID: snap.DocumentID,
		Persona:    snap.Persona,
	}, s.env.ConfigDir)
	if err != nil {
		s.env.Logger.Warn("could not save active chat", "error", err)
	}
}

// command runs a slash command and returns the text to show.
func (s *chatSession) command(ctx context.Context, line string) (string, bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/exit", "/quit":
		return "", true, nil

	case "/help":
		return helpText, false, nil

	case "/new":
		s.conv.NewChat()
		s.save()
		return "Started a new chat.", false, nil

	case "/persona":
		if len(args) == 0 {
			return s.personaList(), false, nil
		}
		if err := s.conv.SetPersona(args[0]); err != nil {
			return "", false, err
		}
		s.save()
		msg := "Persona set to " + client.PersonaName(args[0]) + "."
		if s.document == nil {
			msg += " General chats always answer as the General Assistant."
		}
		return msg, false, nil

	case "/web":
		on := !s.conv.Snapshot().WebSearch
		if len(args) > 0 {
			switch args[0] {
			case "on":
				on = true
			case "off":
				on = false
			default:
				return "", false, fmt.Errorf("usage: /web [on|off]")
			}
		}
		s.conv.SetWebSearch(on)
		return "Web search " + onOff(on) + ".", false, nil

	case "/history":
		return s.history(ctx)

	case "/load":
		if len(args) != 1 {
			return "", false, fmt.Errorf("usage: /load <id>")
		}
		if err := s.load(ctx, args[0]); err != nil {
			return "", false, err
		}
		s.save()
		snap := s.conv.Snapshot()
		return fmt.Sprintf("Loaded chat %s (%d messages).", snap.SessionID, len(snap.Messages)), false, nil

	default:
		return "", false, fmt.Errorf("unknown command %s, try /help", name)
	}
}

func (s *chatSession) personaList() string {
	current := s.conv.Snapshot().Persona
	var b strings.Builder
	b.WriteString("Personas:")
	for _, p := range client.Personas() {
		marker := " "
		if p.Key == current {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n  %s %-10s %s", marker, p.Key, p.Name)
	}
	return b.String()
}

func (s *chatSession) history(ctx context.Context) (string, bool, error) {
	sessions, err := s.env.Client.ListSessions(ctx, s.conv.Snapshot().DocumentID)
	if err != nil {
		return "", false, err
	}
	if len(sessions) == 0 {
		return "No earlier chats.", false, nil
	}

	current := s.conv.Snapshot().SessionID
	var b strings.Builder
	b.WriteString("Earlier chats:")
	for _, sess := range sessions {
		marker := " "
		if sess.ID == current {
			marker = "*"
		}
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "\n  %s %s  %s  %s", marker, sess.ID, sess.UpdatedAt.Local().Format("2006-01-02 15:04"), utils.Truncate(title, 50))
	}
	return b.String(), false, nil
}

// title describes what the chat is about.
func (s *chatSession) title() string {
	if s.document == nil {
		return "General chat"
	}
	return s.document.Filename
}

// renderMessage formats one message. Markdown is rendered with glamour when
// enabled and the message is complete.
func (s *chatSession) renderMessage(m study.Message, complete bool, width int) string {
	var b strings.Builder

	switch m.Role {
	case client.RoleUser:
		b.WriteString(userLabel)
		b.WriteString(m.Content)
	default:
		b.WriteString(tutorLabel)
		content := m.Content
		if s.markdown && complete {
			if rendered, err := cliui.RenderMarkdown(content, s.style, width); err == nil {
				content = "\n" + strings.Trim(rendered, "\n")
			}
		}
		b.WriteString(content)
		if pages := cliui.FormatCitations(m.Citations); pages != "" {
			b.WriteString("\n")
			b.WriteString(cliui.DimStyle.Render("Sources: " + pages))
		}
	}
	return b.String()
}

// renderTranscript formats every message. The last assistant message is
// treated as incomplete while a reply streams.
func (s *chatSession) renderTranscript(snap study.Snapshot, width int) string {
	parts := make([]string, 0, len(snap.Messages))
	for i, m := range snap.Messages {
		complete := !snap.Loading || i < len(snap.Messages)-1
		parts = append(parts, s.renderMessage(m, complete, width))
	}
	return strings.Join(parts, "\n\n")
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
