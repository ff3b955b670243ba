package library

import (
	"context"

	"shelfd/internal/searchquery"
)

// SearchResult содержит агрегированный результат поиска
type SearchResult struct {
	Total int
	Books []Book
}

// Search разбирает строку запроса и фильтрует книги библиотеки.
// Total считает все совпадения, Books обрезается по limit.
func (l *Library) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	node := searchquery.Parse(query)

	books, err := l.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Books: make([]Book, 0, limit)}
	for _, b := range books {
		if !searchquery.Match(node, b.Title, b.AuthorList()) {
			continue
		}
		res.Total++
		if limit <= 0 || len(res.Books) < limit {
			res.Books = append(res.Books, b)
		}
	}
	return res, nil
}
