package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
	books "google.golang.org/api/books/v1"
	"google.golang.org/api/option"
)

type BooksAdapter struct {
	service *books.Service
	guard   *guard
	logger  *zap.Logger
}

// NewBooksAdapter builds the book catalog adapter. An empty apiKey disables it.
func NewBooksAdapter(ctx context.Context, apiKey string, opts Options, clientOpts ...option.ClientOption) (*BooksAdapter, error) {
	opts = opts.withDefaults()
	a := &BooksAdapter{
		guard:  newGuard(domain.SourceBooks, opts.RequestsPerSecond, opts.Logger),
		logger: opts.Logger,
	}
	if apiKey == "" {
		opts.Logger.Info("Book catalog adapter disabled (no API key)")
		return a, nil
	}

	clientOpts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, clientOpts...)
	service, err := books.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Books service: %w", err)
	}
	a.service = service
	return a, nil
}

func (a *BooksAdapter) ID() domain.SourceID { return domain.SourceBooks }

func (a *BooksAdapter) Fetch(ctx context.Context, name string, _ domain.KnownIdentifiers) domain.Fragment {
	empty := domain.EmptyFragment{ID: domain.SourceBooks}
	if a.service == nil {
		return empty
	}

	query := fmt.Sprintf("inauthor:%q", util.CleanName(name))

	var volumes []*books.Volume
	err := a.guard.do(ctx, func(ctx context.Context) error {
		resp, err := a.service.Volumes.List(query).
			MaxResults(int64(constants.Merge.MaxBooks)).
			PrintType("books").
			OrderBy("relevance").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		volumes = resp.Items
		return nil
	})
	if err != nil {
		a.logger.Warn("Book search failed", zap.String("name", name), zap.Error(err))
		return empty
	}

	list := BooksFromVolumes(name, volumes)
	if len(list) == 0 {
		return empty
	}

	a.logger.Debug("Books fetched", zap.String("name", name), zap.Int("books", len(list)))
	return &domain.BooksFragment{Books: list}
}

// BooksFromVolumes keeps volumes authored by name, deduplicated by title.
func BooksFromVolumes(name string, volumes []*books.Volume) []domain.Book {
	seen := make(map[string]struct{})
	result := make([]domain.Book, 0, len(volumes))

	for _, v := range volumes {
		if v == nil || v.VolumeInfo == nil || v.VolumeInfo.Title == "" {
			continue
		}
		info := v.VolumeInfo
		if !IsRelevant(name, info.Authors...) {
			continue
		}

		key := util.NormalizeForCompare(info.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		book := domain.Book{
			Title:         info.Title,
			Subtitle:      info.Subtitle,
			Authors:       info.Authors,
			Publisher:     info.Publisher,
			PublishedDate: info.PublishedDate,
			InfoURL:       info.InfoLink,
			PageCount:     info.PageCount,
		}
		if info.ImageLinks != nil {
			book.Thumbnail = strings.Replace(info.ImageLinks.Thumbnail, "http://", "https://", 1)
		}
		for _, id := range info.IndustryIdentifiers {
			switch id.Type {
			case "ISBN_10":
				book.ISBN10 = id.Identifier
			case "ISBN_13":
				book.ISBN13 = id.Identifier
			}
		}
		if book.ISBN10 == "" {
			book.ISBN10 = ISBN13To10(book.ISBN13)
		}
		book.PurchaseLinks = PurchaseLinks(book)

		result = append(result, book)
		if len(result) == constants.Merge.MaxBooks {
			break
		}
	}
	return result
}

// PurchaseLinks derives store links from a book's ISBNs.
func PurchaseLinks(b domain.Book) []domain.PurchaseLink {
	links := []domain.PurchaseLink{}
	if b.ISBN10 != "" {
		links = append(links, domain.PurchaseLink{Store: "Amazon", URL: "https://www.amazon.com/dp/" + b.ISBN10})
	}
	if b.ISBN13 != "" {
		links = append(links, domain.PurchaseLink{Store: "Bookshop", URL: "https://bookshop.org/book/" + b.ISBN13})
	}
	if b.InfoURL != "" {
		links = append(links, domain.PurchaseLink{Store: "Google Books", URL: b.InfoURL})
	}
	return links
}

// ISBN13To10 converts a 978-prefixed ISBN-13 to ISBN-10, or returns "".
func ISBN13To10(isbn13 string) string {
	digits := strings.ReplaceAll(isbn13, "-", "")
	if len(digits) != 13 || !strings.HasPrefix(digits, "978") {
		return ""
	}

	core := digits[3:12]
	sum := 0
	for i, r := range core {
		if r < '0' || r > '9' {
			return ""
		}
		sum += int(r-'0') * (10 - i)
	}

	check := (11 - sum%11) % 11
	if check == 10 {
		return core + "X"
	}
	return core + string(rune('0'+check))
}
