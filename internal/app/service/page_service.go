package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hanru_board/internal/bilingual"
	"hanru_board/internal/common"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/preference"
	"hanru_board/internal/render"
)

const (
	postSelector    = "main#post"
	sidebarSelector = "aside#sidebar"
)

// PageService renders a post page with both language variants in the markup
// and the viewer's display mode applied to it.
type PageService struct {
	posts      *PostService
	categories *CategoryService
	prefs      *PreferenceService
}

func NewPageService(posts *PostService, categories *CategoryService, prefs *PreferenceService) *PageService {
	return &PageService{posts: posts, categories: categories, prefs: prefs}
}

// postVariants renders one tagged article per language, or a single untagged
// original when the viewer asked for it.
func postVariants(post *model.Post, viewer Viewer) ([]render.PostVariant, error) {
	entity := PostEntity(post)
	if viewer.ForceOriginal {
		r, err := bilingual.Resolve(entity, bilingual.Viewer{RequestedLanguage: post.SourceLang, ForceOriginal: true})
		if err != nil {
			return nil, err
		}
		return []render.PostVariant{{Resolved: r, SourceLang: post.SourceLang}}, nil
	}
	variants := make([]render.PostVariant, 0, 2)
	for _, lang := range []model.Language{model.LangKo, model.LangRu} {
		r, err := bilingual.Resolve(entity, bilingual.Viewer{RequestedLanguage: lang})
		if err != nil {
			return nil, err
		}
		variants = append(variants, render.PostVariant{Resolved: r, SourceLang: post.SourceLang, Tagged: true})
	}
	return variants, nil
}

// controller applies the viewer's resolved mode; rendering never writes the slot.
func (s *PageService) controller(viewer Viewer, doc *render.Document) *preference.Controller {
	return s.prefs.TransientController(viewer.Mode, doc)
}

// RenderPost returns the full HTML page for post id. The post body and the
// category sidebar are inserted concurrently; the watcher keeps the mode
// applied as each lands.
func (s *PageService) RenderPost(ctx context.Context, viewer Viewer, id string) (string, error) {
	post, err := s.posts.loadReadable(ctx, viewer, id)
	if err != nil {
		return "", err
	}
	variants, err := postVariants(post, viewer)
	if err != nil {
		return "", common.Errorf("post %s: %w", id, err)
	}

	doc, err := render.Parse(render.Shell)
	if err != nil {
		return "", err
	}
	ctrl := s.controller(viewer, doc)
	mode := ctrl.Init(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	watcher := preference.NewWatcher(ctrl, s.prefs.Delays())
	watcher.Start(watchCtx)
	defer watcher.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fragment, err := render.PostFragment(variants)
		if err != nil {
			return err
		}
		return doc.Append(postSelector, fragment)
	})
	g.Go(func() error {
		items, err := s.categories.SidebarItems(gctx)
		if err != nil {
			return err
		}
		fragment, err := render.SidebarFragment(items)
		if err != nil {
			return err
		}
		if err := doc.Append(sidebarSelector, fragment); err != nil {
			return err
		}
		watcher.ContentLoaded("sidebar")
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", common.Errorf("failed to render post page: %w", err)
	}

	watcher.Ready()
	if err := watcher.Flush(ctx); err != nil {
		return "", common.Errorf("failed to apply display mode: %w", err)
	}

	html, err := doc.HTML()
	if err != nil {
		return "", err
	}
	if err := s.posts.postRepo.IncrementViewCount(ctx, post.ID); err != nil {
		log.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to increment view count")
	}
	log.Debug().Str("post_id", post.ID).Str("mode", string(mode)).Int64("applies", watcher.Applies()).Msg("Post page rendered")
	return html, nil
}
