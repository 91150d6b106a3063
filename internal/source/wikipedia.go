package source

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
)

const wikipediaAPI = "https://en.wikipedia.org/w/api.php"

var (
	birthCategory  = regexp.MustCompile(`^Category:(\d{3,4}) births$`)
	deathCategory  = regexp.MustCompile(`^Category:(\d{3,4}) deaths$`)
	peopleFromCats = regexp.MustCompile(`^Category:People from (.+)$`)
)

type WikipediaAdapter struct {
	client *apiClient
	logger *zap.Logger
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type wikiPageResponse struct {
	Query struct {
		Pages []wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	Title     string `json:"title"`
	Missing   bool   `json:"missing"`
	Extract   string `json:"extract"`
	FullURL   string `json:"fullurl"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	Categories []struct {
		Title string `json:"title"`
	} `json:"categories"`
	PageProps map[string]string `json:"pageprops"`
}

// NewWikipediaAdapter builds the encyclopedia adapter. baseURL defaults to
// the English Wikipedia action API.
func NewWikipediaAdapter(baseURL string, opts Options) *WikipediaAdapter {
	opts = opts.withDefaults()
	if baseURL == "" {
		baseURL = wikipediaAPI
	}
	return &WikipediaAdapter{
		client: newAPIClient(domain.SourceEncyclopedia, baseURL, opts),
		logger: opts.Logger,
	}
}

func (a *WikipediaAdapter) ID() domain.SourceID { return domain.SourceEncyclopedia }

func (a *WikipediaAdapter) Fetch(ctx context.Context, name string, known domain.KnownIdentifiers) domain.Fragment {
	empty := domain.EmptyFragment{ID: domain.SourceEncyclopedia}

	title := known.WikipediaTitle
	if title == "" {
		var err error
		title, err = a.search(ctx, name)
		if err != nil {
			a.logger.Warn("Encyclopedia search failed", zap.String("name", name), zap.Error(err))
			return empty
		}
	}
	if title == "" {
		return empty
	}

	page, err := a.page(ctx, title)
	if err != nil {
		a.logger.Warn("Encyclopedia page fetch failed", zap.String("title", title), zap.Error(err))
		return empty
	}
	if page == nil {
		return empty
	}

	frag := encyclopediaFromPage(page)
	a.logger.Debug("Encyclopedia page fetched",
		zap.String("name", name),
		zap.String("title", frag.Title),
		zap.Int64("birthYear", frag.BirthYear))
	return frag
}

func (a *WikipediaAdapter) search(ctx context.Context, name string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {util.CleanName(name)},
		"srlimit":       {"5"},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var resp wikiSearchResponse
	if err := a.client.getJSON(ctx, params, &resp); err != nil {
		return "", err
	}

	for _, hit := range resp.Query.Search {
		if IsRelevant(name, hit.Title, htmlText(hit.Snippet)) {
			return hit.Title, nil
		}
	}
	return "", nil
}

// page loads the intro, image and categories. Missing and disambiguation
// pages yield nil.
func (a *WikipediaAdapter) page(ctx context.Context, title string) (*wikiPage, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts|pageimages|categories|info|pageprops"},
		"titles":        {title},
		"exintro":       {"1"},
		"inprop":        {"url"},
		"piprop":        {"thumbnail"},
		"pithumbsize":   {"400"},
		"cllimit":       {"max"},
		"clshow":        {"!hidden"},
		"ppprop":        {"disambiguation"},
		"redirects":     {"1"},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var resp wikiPageResponse
	if err := a.client.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Query.Pages) == 0 {
		return nil, nil
	}

	page := resp.Query.Pages[0]
	if page.Missing || page.Extract == "" {
		return nil, nil
	}
	if _, ok := page.PageProps["disambiguation"]; ok {
		return nil, nil
	}
	return &page, nil
}

func encyclopediaFromPage(page *wikiPage) *domain.EncyclopediaFragment {
	paragraphs := htmlParagraphs(page.Extract)

	frag := &domain.EncyclopediaFragment{
		Title:   page.Title,
		Name:    util.StripQualifier(page.Title),
		LongBio: strings.Join(paragraphs, "\n\n"),
		PageURL: page.FullURL,
	}
	if len(paragraphs) > 0 {
		frag.ShortBio = shortBio(paragraphs[0], constants.Merge.ShortBioRunes)
	}
	if page.Thumbnail != nil {
		frag.ImageURL = page.Thumbnail.Source
	}

	for _, c := range page.Categories {
		if m := birthCategory.FindStringSubmatch(c.Title); m != nil {
			frag.BirthYear, _ = strconv.ParseInt(m[1], 10, 64)
		}
		if m := deathCategory.FindStringSubmatch(c.Title); m != nil {
			frag.DeathYear, _ = strconv.ParseInt(m[1], 10, 64)
		}
		if m := peopleFromCats.FindStringSubmatch(c.Title); m != nil && frag.BirthPlace == "" {
			frag.BirthPlace = m[1]
		}
	}
	return frag
}

// htmlParagraphs returns the non-empty paragraph texts of an HTML fragment.
func htmlParagraphs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := util.CollapseSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		if text := util.CollapseSpace(doc.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs
}

func htmlText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return util.CollapseSpace(doc.Text())
}

// shortBio cuts text at the last sentence end that fits in maxRunes.
func shortBio(text string, maxRunes int) string {
	rs := []rune(text)
	if len(rs) <= maxRunes {
		return text
	}
	cut := string(rs[:maxRunes])
	if i := strings.LastIndex(cut, ". "); i > 0 {
		return cut[:i+1]
	}
	return util.TruncateString(text, maxRunes)
}
