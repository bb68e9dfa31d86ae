package main

import (
	"flag"

	"secd/internal/lsp"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const (
	lsName  = "secd-lsp"
	version = "0.1"
)

var store = lsp.NewStore()
var handler protocol.Handler
var log = commonlog.GetLogger(lsName)

func main() {
	verbosity := flag.Int("v", 0, "log verbosity on stderr")
	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	handler = protocol.Handler{
		Initialize:                 initialize,
		Initialized:                initialized,
		Shutdown:                   shutdown,
		TextDocumentDidOpen:        textDocumentDidOpen,
		TextDocumentDidChange:      textDocumentDidChange,
		TextDocumentDidSave:        textDocumentDidSave,
		TextDocumentDidClose:       textDocumentDidClose,
		TextDocumentDocumentSymbol: textDocumentDocumentSymbol,
		TextDocumentCompletion:     textDocumentCompletion,
		TextDocumentHover:          textDocumentHover,
	}

	server := server.NewServer(&handler, lsName, false)
	server.RunStdio()
}

func initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	full := protocol.TextDocumentSyncKindFull
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &full,
			Save:      protocol.SaveOptions{IncludeText: &protocol.False},
		},
		DocumentSymbolProvider: true,
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: []string{"("},
		},
		HoverProvider: true,
	}
	log.Infof("initialized %s %s", lsName, version)

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: ptrString(version),
		},
	}, nil
}

func initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(ctx *glsp.Context) error {
	return nil
}

func textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	update(ctx, uri, params.TextDocument.Text, params.TextDocument.Version)
	return nil
}

func textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	text, ok := extractFullText(params.ContentChanges[len(params.ContentChanges)-1])
	if !ok {
		return nil
	}
	update(ctx, uri, text, params.TextDocument.Version)
	return nil
}

func textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	// Imported libraries may have changed on disk.
	if doc, ok := store.Get(uri); ok {
		update(ctx, uri, doc.Text, protocol.Integer(doc.Version))
	}
	return nil
}

func textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Delete(uri)
	publish(ctx, uri, nil)
	return nil
}

func textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := store.Get(string(params.TextDocument.URI))
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}
	return lsp.DocumentSymbols(doc.Analysis, doc.Text), nil
}

func textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := store.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	items := lsp.CompletionItems(doc.Analysis, doc.Text, params.Position)
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := store.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	return lsp.HoverAt(doc.Analysis, doc.Text, params.Position), nil
}

// update analyzes the new text, stores it and publishes its diagnostics.
// Buffers that are not Scheme files on disk still get symbols and hover,
// but imports cannot be resolved for them.
func update(ctx *glsp.Context, uri, text string, version protocol.Integer) {
	path := ""
	if lsp.IsSourceURI(uri) {
		path = lsp.UriToPath(uri)
	}
	an := lsp.Analyze(text, path)
	store.Set(uri, lsp.Document{Text: text, Version: int32(version), Analysis: an})
	log.Debugf("analyzed %s: %d definitions, %d diagnostics", uri, len(an.Definitions), len(an.Diagnostics))
	publish(ctx, uri, lsp.ToLspDiagnostics(text, an.Diagnostics))
}

func publish(ctx *glsp.Context, uri string, diags []protocol.Diagnostic) {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: diags,
	})
}

func extractFullText(change any) (string, bool) {
	switch typed := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return typed.Text, true
	case protocol.TextDocumentContentChangeEvent:
		return typed.Text, true
	default:
		return "", false
	}
}

func ptrString(s string) *string { return &s }
