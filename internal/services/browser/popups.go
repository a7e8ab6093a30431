package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/peto/internal/models"
)

// popupRegistry tracks page targets opened by session tabs, keyed by
// opener. A popup starts life as about:blank; its real URL arrives via
// TargetInfoChanged once navigation commits.
type popupRegistry struct {
	mu       sync.Mutex
	byOpener map[target.ID][]*target.Info
}

func newPopupRegistry() *popupRegistry {
	return &popupRegistry{
		byOpener: make(map[target.ID][]*target.Info),
	}
}

func (r *popupRegistry) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		r.add(e.TargetInfo)
	case *target.EventTargetInfoChanged:
		r.update(e.TargetInfo)
	case *target.EventTargetDestroyed:
		r.remove(e.TargetID)
	}
}

// add registers a new page target that has an opener. Targets without an
// opener are session tabs, not popups.
func (r *popupRegistry) add(info *target.Info) {
	if info == nil || info.Type != "page" || info.OpenerID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOpener[info.OpenerID] = append(r.byOpener[info.OpenerID], info)
}

func (r *popupRegistry) update(info *target.Info) {
	if info == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for opener, list := range r.byOpener {
		for i, existing := range list {
			if existing.TargetID == info.TargetID {
				r.byOpener[opener][i] = info
				return
			}
		}
	}
}

func (r *popupRegistry) remove(id target.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for opener, list := range r.byOpener {
		kept := list[:0]
		for _, existing := range list {
			if existing.TargetID != id {
				kept = append(kept, existing)
			}
		}
		if len(kept) == 0 {
			delete(r.byOpener, opener)
		} else {
			r.byOpener[opener] = kept
		}
	}
}

// takeNewest pops the most recent popup opened by the given target.
func (r *popupRegistry) takeNewest(opener target.ID) *target.Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byOpener[opener]
	if len(list) == 0 {
		return nil
	}
	info := list[len(list)-1]
	list = list[:len(list)-1]
	if len(list) == 0 {
		delete(r.byOpener, opener)
	} else {
		r.byOpener[opener] = list
	}
	return info
}

// AdoptPopup switches the session to the newest popup its tab opened.
// Social share popups get closed and skipped; real application windows
// become the session's active context. Returns true when adopted.
func (s *Session) AdoptPopup(ctx context.Context) (bool, error) {
	info := s.svc.popups.takeNewest(s.targetID)
	if info == nil {
		return false, nil
	}

	popupCtx, popupCancel := chromedp.NewContext(s.svc.browserCtx, chromedp.WithTargetID(info.TargetID))

	attachCtx, attachCancel := context.WithTimeout(popupCtx, adoptTimeout)
	defer attachCancel()
	stop := context.AfterFunc(ctx, attachCancel)
	defer stop()

	var url string
	if err := chromedp.Run(attachCtx, chromedp.Location(&url)); err != nil {
		popupCancel()
		return false, fmt.Errorf("attach popup: %w", err)
	}

	if isSocialURL(url) {
		s.logger.Debug().Str("url", url).Msg("Closing social popup")
		_ = chromedp.Run(attachCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			return target.CloseTarget(info.TargetID).Do(ctx)
		}))
		popupCancel()
		return false, nil
	}

	if err := s.prepare(popupCtx); err != nil {
		popupCancel()
		return false, fmt.Errorf("prepare popup context: %w", err)
	}

	// The opener tab stays open until Close; requests it still owns can
	// finish without tearing down the new context
	s.retired = append(s.retired, s.cancel)
	s.ctx = popupCtx
	s.cancel = popupCancel

	// Current document predates the install hook, so inject directly
	if err := s.Reinject(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Popup helper install deferred to next eval")
	}

	s.logger.Info().Str("url", url).Msg("Adopted popup window")
	return true, nil
}

func isSocialURL(url string) bool {
	lower := strings.ToLower(url)
	for _, domain := range models.SocialDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}
