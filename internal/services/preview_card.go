package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"os"
	"sort"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

const (
	cardWidth  = 1200
	cardHeight = 630
)

// PreviewCardService renders shareable PNG cards for themes and drafts:
// theme name, version badge, and the theme's preview image when one
// exists under assets/.
type PreviewCardService interface {
	ThemeCard(ctx context.Context, slug string) ([]byte, error)
	DraftCard(ctx context.Context, draftID uuid.UUID) ([]byte, error)
}

type previewCardService struct {
	log           *logger.Logger
	themeRepo     repos.ThemeRepo
	versionRepo   repos.ThemeVersionRepo
	builderRepo   repos.BuilderThemeRepo
	bFileRepo     repos.BuilderFileRepo
	publishedRepo repos.PublishedVersionRepo

	titleFace font.Face
	bodyFace  font.Face
}

func NewPreviewCardService(
	baseLog *logger.Logger,
	themeRepo repos.ThemeRepo,
	versionRepo repos.ThemeVersionRepo,
	builderRepo repos.BuilderThemeRepo,
	bFileRepo repos.BuilderFileRepo,
	publishedRepo repos.PublishedVersionRepo,
) (PreviewCardService, error) {
	log := baseLog.With("service", "PreviewCardService")

	titleFace, err := loadCardFace(os.Getenv("PREVIEW_CARD_FONT"), gobold.TTF, 72)
	if err != nil {
		return nil, fmt.Errorf("load title font: %w", err)
	}
	bodyFace, err := loadCardFace(os.Getenv("PREVIEW_CARD_FONT"), goregular.TTF, 32)
	if err != nil {
		return nil, fmt.Errorf("load body font: %w", err)
	}

	return &previewCardService{
		log:           log,
		themeRepo:     themeRepo,
		versionRepo:   versionRepo,
		builderRepo:   builderRepo,
		bFileRepo:     bFileRepo,
		publishedRepo: publishedRepo,
		titleFace:     titleFace,
		bodyFace:      bodyFace,
	}, nil
}

func (pcs *previewCardService) ThemeCard(ctx context.Context, slug string) ([]byte, error) {
	theme, err := pcs.themeRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup theme: %w", err)
	}
	if theme == nil {
		return nil, apperr.NotFound("theme " + slug)
	}
	badge := "unsynced"
	if live, err := pcs.versionRepo.GetLive(ctx, nil, theme.ID); err == nil && live != nil {
		badge = fmt.Sprintf("v%d", live.Sequence)
	}
	var banner image.Image
	if published, err := pcs.publishedRepo.GetLive(ctx, nil, theme.ID); err == nil && published != nil {
		if files, err := pcs.publishedRepo.Files(ctx, nil, published.ID); err == nil {
			banner = firstImage(filesAsSet(files))
		}
	}
	return pcs.drawCard(theme.Name, theme.Slug, badge, banner)
}

func (pcs *previewCardService) DraftCard(ctx context.Context, draftID uuid.UUID) ([]byte, error) {
	draft, err := pcs.builderRepo.GetByID(ctx, nil, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, apperr.NotFound("draft " + draftID.String())
	}
	theme, err := pcs.themeRepo.GetByID(ctx, nil, draft.ThemeID)
	if err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}
	title := draft.Label
	if title == "" && theme != nil {
		title = theme.Name + " draft"
	}
	var banner image.Image
	if files, err := pcs.bFileRepo.ListByBuilder(ctx, nil, draftID); err == nil {
		set := map[string][]byte{}
		for _, f := range files {
			set[f.Path] = f.Content
		}
		banner = firstImage(set)
	}
	subtitle := "draft"
	if theme != nil {
		subtitle = theme.Slug
	}
	return pcs.drawCard(title, subtitle, strings.ToLower(draft.Status), banner)
}

func (pcs *previewCardService) drawCard(title, subtitle, badge string, banner image.Image) ([]byte, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	bg := cardColor(subtitle)
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, cardWidth, cardHeight)
	dc.Fill()

	if banner != nil {
		scaled := scaleBanner(banner, cardWidth, cardHeight/2)
		dc.DrawImage(scaled, 0, cardHeight/2)
		dc.SetColor(color.NRGBA{R: 0, G: 0, B: 0, A: 90})
		dc.DrawRectangle(0, cardHeight/2, cardWidth, cardHeight/2)
		dc.Fill()
	}

	dc.SetFontFace(pcs.titleFace)
	dc.SetColor(color.White)
	dc.DrawStringWrapped(title, 80, 120, 0, 0, cardWidth-160, 1.2, gg.AlignLeft)

	dc.SetFontFace(pcs.bodyFace)
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 200})
	dc.DrawString(subtitle, 80, 320)

	bw, bh := dc.MeasureString(badge)
	dc.SetColor(color.NRGBA{R: 0, G: 0, B: 0, A: 120})
	dc.DrawRoundedRectangle(cardWidth-bw-140, 70, bw+60, bh+30, 12)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawString(badge, cardWidth-bw-110, 70+bh+8)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode preview card: %w", err)
	}
	return buf.Bytes(), nil
}

// cardColor picks a stable background per subtitle so a theme's card
// looks the same across regenerations.
func cardColor(seed string) color.NRGBA {
	palette := []color.NRGBA{
		{R: 0x1E, G: 0x3A, B: 0x5F, A: 0xFF},
		{R: 0x3B, G: 0x2F, B: 0x63, A: 0xFF},
		{R: 0x14, G: 0x53, B: 0x4A, A: 0xFF},
		{R: 0x6B, G: 0x2D, B: 0x3C, A: 0xFF},
		{R: 0x4A, G: 0x3B, B: 0x1E, A: 0xFF},
	}
	h := fnv.New32a()
	h.Write([]byte(seed))
	return palette[int(h.Sum32())%len(palette)]
}

func scaleBanner(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// firstImage decodes the first decodable image under assets/, walking
// paths in sorted order for determinism.
func firstImage(files map[string][]byte) image.Image {
	paths := make([]string, 0, len(files))
	for p := range files {
		if strings.HasPrefix(p, "assets/") {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)
	for _, p := range paths {
		if img, _, err := image.Decode(bytes.NewReader(files[p])); err == nil {
			return img
		}
	}
	return nil
}

func filesAsSet(files []*types.PublishedFile) map[string][]byte {
	set := make(map[string][]byte, len(files))
	for _, f := range files {
		set[f.Path] = f.Content
	}
	return set
}

func loadCardFace(customPath string, fallback []byte, size float64) (font.Face, error) {
	data := fallback
	if strings.TrimSpace(customPath) != "" {
		raw, err := os.ReadFile(customPath)
		if err != nil {
			return nil, fmt.Errorf("read font file: %w", err)
		}
		data = raw
	}
	parsed, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse TTF: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
