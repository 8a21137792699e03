package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChatHandle identifies one chat in the discovered chat list.
type ChatHandle struct {
	Index int
	Title string
}

// BrowserOptions configure the browsing context.
type BrowserOptions struct {
	BaseURL     string
	Headless    bool
	UserDataDir string
}

// DefaultBaseURL is the chat application entry point.
const DefaultBaseURL = "https://teams.microsoft.com/v2/"

// selectors are the ordered fallback lists used for every DOM query. Minor
// UI changes degrade to the next selector instead of breaking the run.
var selectors = struct {
	chatItems     []string
	messageBodies []string
	scrollPanes   []string
	loadMore      string
	historyTop    []string
	chatList      string
}{
	chatItems: []string{
		`div[data-item-type="chat"][data-testid="list-item"]`,
		`div[data-tid="chat-pane-list"] > *`,
		`li[data-tid*="chat-item"]`,
		`[role="listitem"]`,
	},
	messageBodies: []string{
		`[data-tid="message-body"]`,
		`[data-tid="chat-message"]`,
		`.message-body`,
		`.chat-message`,
		`[data-tid="chat-pane-item"]`,
	},
	scrollPanes: []string{
		`[data-tid="chat-pane-runway"]`,
		`[data-tid="chat-messages-container"]`,
		`[data-tid="message-list"]`,
		`.message-list-container`,
	},
	loadMore: `[data-testid="load-next-page-button"]`,
	historyTop: []string{
		`[data-tid="beginning-of-conversation"]`,
		`[data-tid="chat-birth-message"]`,
	},
	chatList: `div[data-tid="chat-pane-list"], div[data-item-type="chat"]`,
}

// Browser owns the chromedp browsing context. It implements ChatView for the
// currently open chat and BlobFetcher for in-context blob extraction. All
// methods must be called from a single logical flow; the context is a
// serially-accessed resource.
type Browser struct {
	ctx     context.Context
	cancels []context.CancelFunc
	opts    BrowserOptions
}

// NewBrowser launches the browser and attaches a fresh browsing context.
func NewBrowser(parent context.Context, opts BrowserOptions) (*Browser, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	b := &Browser{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		opts:    opts,
	}

	// Starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return b, nil
}

// Close tears down the browsing context and the browser process.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}

// Navigate opens the chat application entry page.
func (b *Browser) Navigate(ctx context.Context) error {
	err := b.run(ctx,
		chromedp.Navigate(b.opts.BaseURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return b.classify("navigate", err)
	}
	return nil
}

// WaitForLogin polls until the chat list appears, giving the user time to
// authenticate interactively. Credentials are never handled here.
func (b *Browser) WaitForLogin(ctx context.Context, max time.Duration) error {
	deadline := time.Now().Add(max)
	check := fmt.Sprintf(`document.querySelector(%q) !== null`, selectors.chatList)

	for time.Now().Before(deadline) {
		var present bool
		if err := b.run(ctx, chromedp.Evaluate(check, &present)); err != nil {
			if lost := b.classify("login wait", err); isContextLost(lost) {
				return lost
			}
		} else if present {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("chat list did not appear within %s; login not completed", max)
}

// ListChats expands the chat list (clicking the show-more control while it
// remains visible) and returns the discovered chats in display order.
func (b *Browser) ListChats(ctx context.Context) ([]ChatHandle, error) {
	const maxLoadMore = 50
	clickMore := fmt.Sprintf(`(function() {
		var btn = document.querySelector(%q);
		if (!btn || btn.offsetParent === null) { return false; }
		btn.scrollIntoView({block: 'center'});
		btn.click();
		return true;
	})()`, selectors.loadMore)

	for i := 0; i < maxLoadMore; i++ {
		var clicked bool
		if err := b.run(ctx, chromedp.Evaluate(clickMore, &clicked)); err != nil {
			return nil, b.classify("expand chat list", err)
		}
		if !clicked {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	listScript := fmt.Sprintf(`(function() {
		var sels = %s;
		var items = [];
		for (var s = 0; s < sels.length; s++) {
			var found = document.querySelectorAll(sels[s]);
			if (found.length > items.length) { items = Array.prototype.slice.call(found); }
		}
		return items.map(function(el, i) {
			var title = (el.innerText || '').split('\n')[0].trim();
			return { index: i, title: title.slice(0, 100) };
		});
	})()`, jsStringArray(selectors.chatItems))

	var handles []struct {
		Index int    `json:"index"`
		Title string `json:"title"`
	}
	if err := b.run(ctx, chromedp.Evaluate(listScript, &handles)); err != nil {
		return nil, b.classify("list chats", err)
	}

	chats := make([]ChatHandle, 0, len(handles))
	for _, h := range handles {
		title := h.Title
		if title == "" {
			title = fmt.Sprintf("Chat_%d", h.Index+1)
		}
		chats = append(chats, ChatHandle{Index: h.Index, Title: title})
	}
	return chats, nil
}

// OpenChat clicks the chat at the handle's index and waits for the message
// pane to materialize.
func (b *Browser) OpenChat(ctx context.Context, handle ChatHandle) error {
	clickScript := fmt.Sprintf(`(function() {
		var sels = %s;
		var items = [];
		for (var s = 0; s < sels.length; s++) {
			var found = document.querySelectorAll(sels[s]);
			if (found.length > items.length) { items = Array.prototype.slice.call(found); }
		}
		if (%d >= items.length) { return false; }
		items[%d].click();
		return true;
	})()`, jsStringArray(selectors.chatItems), handle.Index, handle.Index)

	var clicked bool
	if err := b.run(ctx, chromedp.Evaluate(clickScript, &clicked)); err != nil {
		return b.classify("open chat", err)
	}
	if !clicked {
		return fmt.Errorf("chat %d (%s) not present in the chat list", handle.Index, handle.Title)
	}
	return b.WaitSettle(ctx, 3*time.Second)
}

// Snapshot implements ChatView. Each node is read inside a try so a node
// detached between discovery and field read is skipped, not fatal.
func (b *Browser) Snapshot(ctx context.Context) ([]RawMessage, error) {
	script := fmt.Sprintf(`(function() {
		var sels = %s;
		var nodes = [];
		for (var s = 0; s < sels.length; s++) {
			nodes = Array.prototype.slice.call(document.querySelectorAll(sels[s]));
			if (nodes.length) { break; }
		}
		var out = [];
		for (var i = 0; i < nodes.length; i++) {
			try {
				var n = nodes[i];
				var body = n.innerHTML || '';
				if (!(n.innerText || '').trim()) { continue; }
				var parent = n.parentElement || n;
				var t = parent.querySelector('[data-tid*="timestamp"], .message-timestamp, time');
				var a = parent.querySelector('[data-tid*="author"], .message-author');
				var imgs = [];
				var imgEls = n.querySelectorAll('img');
				for (var j = 0; j < imgEls.length; j++) {
					var src = imgEls[j].src || '';
					if (!src) { continue; }
					if (src.indexOf('data:') === 0 && src.length < 1000) { continue; }
					imgs.push(src);
				}
				var atts = [];
				var attEls = n.querySelectorAll('[data-tid*="attachment"], .attachment-item, a[href*="sharepoint"], a[href*="onedrive"]');
				for (var k = 0; k < attEls.length; k++) {
					atts.push({
						name: (attEls[k].innerText || attEls[k].title || '').trim(),
						href: attEls[k].href || ''
					});
				}
				out.push({
					author: a ? (a.innerText || '').trim() : '',
					hasAuthor: !!a,
					timestamp: t ? (t.innerText || '').trim() : '',
					body: body,
					imageSrcs: imgs,
					attachments: atts
				});
			} catch (e) { }
		}
		return out;
	})()`, jsStringArray(selectors.messageBodies))

	var raws []RawMessage
	if err := b.run(ctx, chromedp.Evaluate(script, &raws)); err != nil {
		return nil, b.classify("snapshot", err)
	}
	return raws, nil
}

// RevealMore implements ChatView: scroll the loaded window to its top so the
// virtualized list loads older history.
func (b *Browser) RevealMore(ctx context.Context) error {
	script := fmt.Sprintf(`(function() {
		var sels = %s;
		for (var s = 0; s < sels.length; s++) {
			var pane = document.querySelector(sels[s]);
			if (pane) { pane.scrollTop = 0; return true; }
		}
		window.scrollTo(0, 0);
		return false;
	})()`, jsStringArray(selectors.scrollPanes))

	var scrolled bool
	if err := b.run(ctx, chromedp.Evaluate(script, &scrolled)); err != nil {
		return b.classify("reveal more", err)
	}
	if !scrolled {
		LogDebug("no scroll pane matched, fell back to window scroll")
	}
	return nil
}

// WaitSettle implements ChatView: poll the materialized message count until
// it holds still for one interval or the budget runs out. Hitting the budget
// is not an error; the caller reads whatever stabilized.
func (b *Browser) WaitSettle(ctx context.Context, max time.Duration) error {
	countScript := fmt.Sprintf(`(function() {
		var sels = %s;
		for (var s = 0; s < sels.length; s++) {
			var n = document.querySelectorAll(sels[s]).length;
			if (n) { return n; }
		}
		return 0;
	})()`, jsStringArray(selectors.messageBodies))

	const interval = 400 * time.Millisecond
	deadline := time.Now().Add(max)
	prev := -1

	for time.Now().Before(deadline) {
		var count int
		if err := b.run(ctx, chromedp.Evaluate(countScript, &count)); err != nil {
			return b.classify("settle wait", err)
		}
		if prev >= 0 && count == prev {
			return nil
		}
		prev = count

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

// AtTop implements ChatView: check for the beginning-of-history banner.
func (b *Browser) AtTop(ctx context.Context) (bool, error) {
	script := fmt.Sprintf(`(function() {
		var sels = %s;
		for (var s = 0; s < sels.length; s++) {
			if (document.querySelector(sels[s])) { return true; }
		}
		return false;
	})()`, jsStringArray(selectors.historyTop))

	var top bool
	if err := b.run(ctx, chromedp.Evaluate(script, &top)); err != nil {
		return false, b.classify("top check", err)
	}
	return top, nil
}

// FetchBlobData implements BlobFetcher: read a blob: URL from inside the
// page and hand it back as a data: URL. Runs on the browsing-context path,
// so it serializes against scrolling by construction.
func (b *Browser) FetchBlobData(ctx context.Context, blobURL string) (string, error) {
	script := fmt.Sprintf(`new Promise(function(resolve, reject) {
		var xhr = new XMLHttpRequest();
		xhr.open('GET', %q, true);
		xhr.responseType = 'blob';
		xhr.onload = function() {
			if (xhr.status !== 200) { reject(new Error('status ' + xhr.status)); return; }
			var reader = new FileReader();
			reader.onloadend = function() { resolve(reader.result); };
			reader.onerror = function() { reject(new Error('read failed')); };
			reader.readAsDataURL(xhr.response);
		};
		xhr.onerror = function() { reject(new Error('request failed')); };
		xhr.send();
	})`, blobURL)

	var dataURL string
	err := b.run(ctx, chromedp.Evaluate(script, &dataURL,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return "", b.classify("blob fetch", err)
	}
	return dataURL, nil
}

// run executes actions against the browsing context under a context ended
// by whichever finishes first, the browser context or the caller's. An
// expired caller deadline therefore stops the action itself; it cannot keep
// running and interleave with a later call. The browser process survives
// since its lifetime hangs off b.ctx, not the derived context.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// classify wraps a chromedp failure: a dead target or closed websocket means
// the browsing context itself is gone, a live caller cancellation passes
// through untouched, everything else is transient. The caller check must
// come before the message sniffing since a cancelled action also reports
// "context canceled".
func (b *Browser) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if b.ctx.Err() != nil {
		return &ContextLostError{Err: fmt.Errorf("%s: %w", op, err)}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if looksLikeContextLoss(err) {
		return &ContextLostError{Err: fmt.Errorf("%s: %w", op, err)}
	}
	return &SnapshotError{Err: fmt.Errorf("%s: %w", op, err)}
}

func looksLikeContextLoss(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"target closed",
		"browser closed",
		"websocket: close",
		"context canceled",
		"no such target",
		"session closed",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func isContextLost(err error) bool {
	var lost *ContextLostError
	return errors.As(err, &lost)
}

// jsStringArray renders a Go string slice as a JS array literal.
func jsStringArray(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
