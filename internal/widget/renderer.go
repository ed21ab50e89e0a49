package widget

// Renderer receives the observable UI events the controller produces.
// DOM construction, terminal output, or a test spy all sit behind this
// interface; the controller never touches presentation directly.
type Renderer interface {
	RenderMessages(messages []Message)
	RenderQuickReplies(replies []QuickReply)
	ShowTyping()
	HideTyping()
	SetOpen(open bool)
}
