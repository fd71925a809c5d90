// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/junegunn/fzf/src/util"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/dm"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

// FocusRegion identifies which pane receives navigation keys.
type FocusRegion int

const (
	// FocusThreads is the thread directory pane.
	FocusThreads FocusRegion = iota
	// FocusConversation is the message history pane.
	FocusConversation
	// FocusComposer is the message input pane.
	FocusComposer
)

// Service is the slice of the backend the TUI needs. *chatapi.Session
// satisfies it.
type Service interface {
	dm.DirectoryService
	dm.MessageService
	dm.UserSearcher
}

// Config holds everything needed to construct the chat model.
type Config struct {
	// Service is the authenticated backend session.
	Service Service
	// SelfID is the signed-in account.
	SelfID ref.UserID
	// SupportID is the always-pinned support account.
	SupportID ref.UserID
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
	// DownloadDirectory is where confirmed attachment downloads are
	// written. Defaults to the current directory.
	DownloadDirectory string
	// SnapshotPath, if set, caches the thread directory on disk so the
	// next launch paints instantly while the live fetch runs.
	SnapshotPath string
	// Theme overrides the default color scheme when non-zero.
	Theme Theme
}

// searchMinRunes is the minimum query length before a directory
// search is dispatched; shorter queries only filter locally.
const searchMinRunes = 2

// noticeLifetime is how long a transient status notice stays visible.
const noticeLifetime = 4 * time.Second

// Messages produced by command goroutines.
type (
	directoryLoadedMsg struct{ err error }

	threadLoadedMsg struct {
		counterpart ref.UserID
		err         error
	}

	imagesResolvedMsg struct{ counterpart ref.UserID }

	sendResultMsg struct {
		counterpart   ref.UserID
		correlationID string
		confirmed     chatapi.Message
		err           error
	}

	searchDebounceMsg struct{ generation int }

	searchResultMsg struct {
		result dm.SearchResult
		err    error
	}

	attachLoadedMsg struct {
		path string
		data []byte
		err  error
	}

	downloadResultMsg struct {
		messageID string
		savedPath string
		err       error
	}

	noticeExpireMsg struct{ generation int }
)

// Model is the bubbletea model for the chat TUI.
type Model struct {
	service   Service
	selfID    ref.UserID
	supportID ref.UserID
	logger    *slog.Logger
	theme     Theme
	keys      KeyMap

	width  int
	height int
	ready  bool

	// Thread directory pane.
	directory        *dm.Directory
	directoryLoading bool
	threads          []dm.Thread
	threadCursor     int

	// Conversation pane.
	view             *dm.ThreadView
	threadLoading    bool
	messages         []dm.Message
	renderedVersion  uint64
	conversation     viewport.Model
	attachmentCursor int // Index into attachmentMessages; -1 when none selected.

	// Composer pane.
	composer      *dm.Composer
	editor        editorModel
	fieldError    string
	inFlight      map[string]dm.Submission // Drafts by correlation ID, for restore on failure.
	reactionOpen  bool
	reactionIndex int

	// Attach-file prompt.
	attachPrompt bool
	attachEditor editorModel

	// Directory search.
	search           *dm.Search
	searchActive     bool
	searchEditor     editorModel
	searchGeneration int
	searchPending    bool
	searchUsers      []chatapi.User
	searchCursor     int
	slab             *util.Slab

	// Download gate.
	downloadModal *downloadModal

	focus             FocusRegion
	notice            string
	noticeGeneration  int
	downloadDirectory string
	snapshotPath      string
}

// New constructs the chat model. If a directory snapshot exists at
// Config.SnapshotPath it seeds the thread list so the first frame
// shows conversations before the live fetch completes.
func New(config Config) (Model, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	directory, err := dm.NewDirectory(dm.DirectoryConfig{
		Service:   config.Service,
		SelfID:    config.SelfID,
		SupportID: config.SupportID,
		Logger:    logger,
	})
	if err != nil {
		return Model{}, fmt.Errorf("chatui: %w", err)
	}

	theme := config.Theme
	if theme == (Theme{}) {
		theme = DefaultTheme
	}
	downloadDirectory := config.DownloadDirectory
	if downloadDirectory == "" {
		downloadDirectory = "."
	}

	model := Model{
		service:           config.Service,
		selfID:            config.SelfID,
		supportID:         config.SupportID,
		logger:            logger,
		theme:             theme,
		keys:              DefaultKeyMap,
		directory:         directory,
		directoryLoading:  true,
		composer:          dm.NewComposer(),
		editor:            newEditorModel(),
		attachEditor:      newEditorModel(),
		searchEditor:      newEditorModel(),
		search:            dm.NewSearch(config.Service),
		inFlight:          make(map[string]dm.Submission),
		attachmentCursor:  -1,
		slab:              util.MakeSlab(100*1024, 2048),
		downloadDirectory: downloadDirectory,
		snapshotPath:      config.SnapshotPath,
	}

	if config.SnapshotPath != "" {
		if threads, err := dm.LoadDirectorySnapshot(config.SnapshotPath); err == nil {
			model.threads = threads
		}
	}

	return model, nil
}

// Init starts the directory load.
func (m Model) Init() tea.Cmd {
	return m.loadDirectoryCmd()
}

// Update is the bubbletea message dispatcher.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case directoryLoadedMsg:
		return m.handleDirectoryLoaded(msg)

	case threadLoadedMsg:
		return m.handleThreadLoaded(msg)

	case imagesResolvedMsg:
		if m.view != nil && m.view.Counterpart() == msg.counterpart {
			m.refreshConversation()
		}
		return m, nil

	case sendResultMsg:
		return m.handleSendResult(msg)

	case searchDebounceMsg:
		return m.handleSearchDebounce(msg)

	case searchResultMsg:
		return m.handleSearchResult(msg)

	case attachLoadedMsg:
		return m.handleAttachLoaded(msg)

	case downloadResultMsg:
		return m.handleDownloadResult(msg)

	case noticeExpireMsg:
		if msg.generation == m.noticeGeneration {
			m.notice = ""
		}
		return m, nil

	case logNoticeMsg:
		if msg.Level >= slog.LevelWarn {
			model, cmd := m.showNotice(msg.Summary)
			return model, cmd
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	conversationWidth, conversationHeight := m.conversationSize()
	if !m.ready {
		m.conversation = viewport.New(conversationWidth, conversationHeight)
		m.ready = true
	} else {
		m.conversation.Width = conversationWidth
		m.conversation.Height = conversationHeight
	}
	m.refreshConversation()
	return m
}

// handleKey routes key input by modal state first, then by focus.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	if m.downloadModal != nil {
		return m.handleDownloadModalKey(msg)
	}
	if m.attachPrompt {
		return m.handleAttachPromptKey(msg)
	}
	if m.searchActive {
		return m.handleSearchKey(msg)
	}

	switch m.focus {
	case FocusThreads:
		return m.handleThreadsKey(msg)
	case FocusConversation:
		return m.handleConversationKey(msg)
	case FocusComposer:
		return m.handleComposerKey(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.view != nil {
		m.view.Release()
	}
	return m, tea.Quit
}

func (m Model) cycleFocus() Model {
	switch m.focus {
	case FocusThreads:
		m.focus = FocusConversation
	case FocusConversation:
		m.focus = FocusComposer
	case FocusComposer:
		m.focus = FocusThreads
	}
	return m
}

// --- Thread directory ---

func (m Model) loadDirectoryCmd() tea.Cmd {
	directory := m.directory
	return func() tea.Msg {
		return directoryLoadedMsg{err: directory.Load(context.Background())}
	}
}

func (m Model) handleDirectoryLoaded(msg directoryLoadedMsg) (tea.Model, tea.Cmd) {
	m.directoryLoading = false
	m.refreshThreads()

	var cmds []tea.Cmd
	if msg.err != nil {
		m.logger.Warn("directory load degraded", "error", msg.err)
		model, cmd := m.showNotice("couldn't load conversations; showing support only")
		m = model
		cmds = append(cmds, cmd)
	} else if m.snapshotPath != "" {
		cmds = append(cmds, m.saveSnapshotCmd())
	}

	if m.view == nil {
		if selected := m.directory.Selected(); !selected.IsZero() {
			model, cmd := m.openThread(selected)
			m = model
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) saveSnapshotCmd() tea.Cmd {
	threads := m.threads
	path := m.snapshotPath
	logger := m.logger
	return func() tea.Msg {
		if err := dm.SaveDirectorySnapshot(path, threads); err != nil {
			logger.Warn("directory snapshot save failed", "path", path, "error", err)
		}
		return nil
	}
}

// refreshThreads re-snapshots the directory and keeps the cursor on
// the selected thread.
func (m *Model) refreshThreads() {
	m.threads = m.directory.Threads()
	selected := m.directory.Selected()
	for index, thread := range m.threads {
		if thread.ID == selected {
			m.threadCursor = index
			return
		}
	}
	if m.threadCursor >= len(m.threads) {
		m.threadCursor = len(m.threads) - 1
	}
	if m.threadCursor < 0 {
		m.threadCursor = 0
	}
}

func (m Model) handleThreadsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.FocusNext):
		return m.cycleFocus(), nil

	case key.Matches(msg, m.keys.Up):
		if m.threadCursor > 0 {
			m.threadCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.threadCursor < len(m.threads)-1 {
			m.threadCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.threadCursor = 0
		return m, nil

	case key.Matches(msg, m.keys.End):
		if len(m.threads) > 0 {
			m.threadCursor = len(m.threads) - 1
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if m.threadCursor < len(m.threads) {
			target := m.threads[m.threadCursor].ID
			if err := m.directory.Select(target); err == nil {
				model, cmd := m.openThread(target)
				return model, cmd
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.SearchActivate):
		m.searchActive = true
		m.searchEditor.Reset()
		m.searchUsers = nil
		m.searchCursor = 0
		m.searchPending = false
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		if !m.directoryLoading {
			m.directoryLoading = true
			return m, m.loadDirectoryCmd()
		}
		return m, nil
	}
	return m, nil
}

// --- Conversation ---

// openThread tears down the previous thread view, creates one for the
// counterpart, and starts the history load.
func (m Model) openThread(counterpart ref.UserID) (Model, tea.Cmd) {
	if m.view != nil && m.view.Counterpart() == counterpart {
		return m, nil
	}
	if m.view != nil {
		m.view.Release()
	}

	view, err := dm.NewThreadView(dm.ThreadViewConfig{
		Service:       m.service,
		SelfID:        m.selfID,
		CounterpartID: counterpart,
		Logger:        m.logger,
	})
	if err != nil {
		m.view = nil
		model, cmd := m.showNotice(err.Error())
		return model, cmd
	}

	m.view = view
	m.messages = nil
	m.renderedVersion = 0
	m.attachmentCursor = -1
	m.threadLoading = true
	m.fieldError = ""
	m.refreshConversation()

	return m, func() tea.Msg {
		return threadLoadedMsg{counterpart: counterpart, err: view.Load(context.Background())}
	}
}

func (m Model) handleThreadLoaded(msg threadLoadedMsg) (tea.Model, tea.Cmd) {
	if m.view == nil || m.view.Counterpart() != msg.counterpart {
		return m, nil
	}
	m.threadLoading = false
	m.refreshConversation()

	var cmds []tea.Cmd
	if msg.err != nil {
		m.logger.Warn("thread history degraded to empty",
			"counterpart", msg.counterpart, "error", msg.err)
		model, cmd := m.showNotice("couldn't load messages for this conversation")
		m = model
		cmds = append(cmds, cmd)
	}

	view := m.view
	cmds = append(cmds, func() tea.Msg {
		view.ResolveImages(context.Background())
		return imagesResolvedMsg{counterpart: msg.counterpart}
	})
	return m, tea.Batch(cmds...)
}

func (m Model) handleConversationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.FocusNext):
		return m.cycleFocus(), nil

	case key.Matches(msg, m.keys.Up):
		m.conversation.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.conversation.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.conversation.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.conversation.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.conversation.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.conversation.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.AttachmentNext):
		m.moveAttachmentCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.AttachmentPrevious):
		m.moveAttachmentCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.Download), key.Matches(msg, m.keys.Select):
		return m.openDownloadModal(), nil
	}
	return m, nil
}

// attachmentMessages returns the indices of messages carrying an
// attachment, in render order.
func (m Model) attachmentMessages() []int {
	var indices []int
	for index := range m.messages {
		if m.messages[index].Attachment != nil {
			indices = append(indices, index)
		}
	}
	return indices
}

func (m *Model) moveAttachmentCursor(delta int) {
	indices := m.attachmentMessages()
	if len(indices) == 0 {
		m.attachmentCursor = -1
		return
	}
	m.attachmentCursor += delta
	if m.attachmentCursor < 0 {
		m.attachmentCursor = len(indices) - 1
	}
	if m.attachmentCursor >= len(indices) {
		m.attachmentCursor = 0
	}
	m.refreshConversation()
}

// --- Composer ---

func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.reactionOpen {
		return m.handleReactionKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.FocusNext):
		return m.cycleFocus(), nil

	case key.Matches(msg, m.keys.Cancel):
		m.focus = FocusThreads
		return m, nil

	case key.Matches(msg, m.keys.Newline):
		m.editor.InsertNewline()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		return m.submitDraft()

	case key.Matches(msg, m.keys.Attach):
		m.attachPrompt = true
		m.attachEditor.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Unstage):
		m.composer.Unstage()
		m.fieldError = ""
		return m, nil

	case key.Matches(msg, m.keys.React):
		m.reactionOpen = true
		m.reactionIndex = 0
		return m, nil
	}

	m.editor.Update(msg)
	return m, nil
}

// submitDraft validates the draft, appends the optimistic pending
// message, and starts the send. The draft is cleared right away and
// stashed; a send failure restores it.
func (m Model) submitDraft() (tea.Model, tea.Cmd) {
	if m.view == nil || m.threadLoading {
		return m, nil
	}

	text := m.editor.Value()
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	m.composer.SetText(text)

	submission, err := m.composer.Submit()
	if err != nil {
		m.fieldError = validationText(err)
		return m, nil
	}

	pending := m.view.Submit(submission)
	m.inFlight[pending.CorrelationID] = submission
	m.composer.Reset()
	m.editor.Reset()
	m.fieldError = ""
	m.refreshConversation()
	m.touchDirectory(pending)

	return m, m.sendCmd(pending.CorrelationID, submission)
}

func (m Model) handleReactionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.React):
		m.reactionOpen = false
		return m, nil

	case msg.Type == tea.KeyLeft:
		if m.reactionIndex > 0 {
			m.reactionIndex--
		}
		return m, nil

	case msg.Type == tea.KeyRight:
		if m.reactionIndex < len(dm.ReactionPalette)-1 {
			m.reactionIndex++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		m.reactionOpen = false
		if m.view == nil || m.threadLoading {
			return m, nil
		}
		submission, err := m.composer.SubmitReaction(dm.ReactionPalette[m.reactionIndex])
		if err != nil {
			m.fieldError = validationText(err)
			return m, nil
		}
		pending := m.view.Submit(submission)
		m.refreshConversation()
		m.touchDirectory(pending)
		return m, m.sendCmd(pending.CorrelationID, submission)
	}
	return m, nil
}

func (m Model) sendCmd(correlationID string, submission dm.Submission) tea.Cmd {
	service := m.service
	counterpart := m.view.Counterpart()
	request := dm.SendRequest(submission)
	return func() tea.Msg {
		confirmed, err := service.Send(context.Background(), counterpart, request)
		return sendResultMsg{
			counterpart:   counterpart,
			correlationID: correlationID,
			confirmed:     confirmed,
			err:           err,
		}
	}
}

func (m Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	draft, hadDraft := m.inFlight[msg.correlationID]
	delete(m.inFlight, msg.correlationID)

	if m.view == nil || m.view.Counterpart() != msg.counterpart {
		return m, nil
	}

	if msg.err != nil {
		m.view.Fail(msg.correlationID)
		m.fieldError = sendErrorText(msg.err)
		if hadDraft {
			m.restoreDraft(draft)
		}
		m.refreshConversation()
		return m, nil
	}

	m.view.Reconcile(msg.correlationID, msg.confirmed)
	m.refreshConversation()
	m.touchDirectory(dm.Message{
		Content:    msg.confirmed.Content,
		Kind:       msg.confirmed.Kind,
		CreatedAt:  msg.confirmed.CreatedAt,
		Attachment: nil,
	})
	return m, nil
}

// restoreDraft puts a failed submission back into the composer, unless
// the user has already typed something new.
func (m *Model) restoreDraft(draft dm.Submission) {
	if draft.Kind == chatapi.KindEmoji {
		return
	}
	if m.editor.Empty() && m.composer.Attachment() == nil {
		m.editor.SetValue(draft.Content)
		m.composer.SetText(draft.Content)
		if draft.Attachment != nil {
			// Already validated once, cannot fail.
			_ = m.composer.Stage(*draft.Attachment)
		}
	}
}

// touchDirectory refreshes the selected thread's last-message summary
// after a send.
func (m *Model) touchDirectory(message dm.Message) {
	if m.view == nil {
		return
	}
	content := message.Content
	if message.Kind == chatapi.KindAttachment && content == "" {
		if message.Attachment != nil {
			content = message.Attachment.DisplayName()
		} else {
			content = "attachment"
		}
	}
	m.directory.Touch(m.view.Counterpart(), dm.LastMessage{
		Content: content,
		SentAt:  message.CreatedAt,
		Read:    true,
	})
	m.refreshThreads()
}

// --- Notices and error text ---

func (m Model) showNotice(text string) (Model, tea.Cmd) {
	m.notice = text
	m.noticeGeneration++
	generation := m.noticeGeneration
	return m, tea.Tick(noticeLifetime, func(time.Time) tea.Msg {
		return noticeExpireMsg{generation: generation}
	})
}

// validationText extracts the user-facing reason from a field-level
// validation failure.
func validationText(err error) string {
	var validation *dm.ValidationError
	if errors.As(err, &validation) {
		return validation.Reason
	}
	return err.Error()
}

// sendErrorText turns a send failure into a short inline message.
func sendErrorText(err error) string {
	var apiError *chatapi.APIError
	if errors.As(err, &apiError) {
		return "send rejected: " + apiError.Message
	}
	return "send failed: check your connection and retry"
}
