// Package catalog реализует витрину каталога товаров: фильтрацию по категории,
// сортировку, курсорную пагинацию и полнотекстовый поиск.
package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/luckybee/storefront-system/internal/repository"
)

// DefaultPageSize — размер страницы каталога.
const DefaultPageSize = 16

// CategoryAll — значение фильтра категории "все категории".
const CategoryAll = "All"

// SortOption описывает один вариант сортировки каталога.
type SortOption struct {
	Label      string
	Field      string
	Descending bool
}

// Token возвращает URL-представление варианта сортировки, например "name-asc".
func (o SortOption) Token() string {
	dir := "asc"
	if o.Descending {
		dir = "desc"
	}
	return o.urlField() + "-" + dir
}

func (o SortOption) urlField() string {
	switch o.Field {
	case repository.SortFieldCreatedAt:
		return "createdAt"
	case repository.SortFieldSalesCount:
		return "salesCount"
	default:
		return o.Field
	}
}

// ProductSort возвращает сортировку в терминах репозитория.
func (o SortOption) ProductSort() repository.ProductSort {
	return repository.ProductSort{Field: o.Field, Descending: o.Descending}
}

// SortOptions — пять фиксированных вариантов сортировки каталога.
// Первый вариант является сортировкой по умолчанию.
var SortOptions = []SortOption{
	{Label: "Newest First", Field: repository.SortFieldCreatedAt, Descending: true},
	{Label: "Oldest First", Field: repository.SortFieldCreatedAt, Descending: false},
	{Label: "Name (A-Z)", Field: repository.SortFieldName, Descending: false},
	{Label: "Name (Z-A)", Field: repository.SortFieldName, Descending: true},
	{Label: "Most Popular", Field: repository.SortFieldSalesCount, Descending: true},
}

// DefaultSortToken — сортировка по умолчанию, опускается в URL.
var DefaultSortToken = SortOptions[0].Token()

// SortFromToken возвращает вариант сортировки по URL-токену.
// Неизвестный токен даёт сортировку по умолчанию.
func SortFromToken(token string) SortOption {
	for _, opt := range SortOptions {
		if opt.Token() == token {
			return opt
		}
	}
	return SortOptions[0]
}

// State — состояние витрины: фильтр, сортировка, страница и поисковая строка.
// Состояние сериализуется в параметры URL и обратно; значения по умолчанию
// в URL опускаются.
type State struct {
	Category  string
	SortToken string
	Page      int
	Query     string
}

// DefaultState возвращает состояние витрины по умолчанию.
func DefaultState() State {
	return State{
		Category:  CategoryAll,
		SortToken: DefaultSortToken,
		Page:      1,
	}
}

// StateFromQuery восстанавливает состояние витрины из параметров URL.
// Отсутствующие и некорректные параметры получают значения по умолчанию.
func StateFromQuery(values url.Values) State {
	s := DefaultState()

	if category := values.Get("category"); category != "" {
		s.Category = category
	}

	if token := values.Get("sort"); token != "" {
		s.SortToken = SortFromToken(token).Token()
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page >= 1 {
		s.Page = page
	}

	s.Query = values.Get("q")

	return s
}

// Values сериализует состояние в параметры URL, опуская значения по умолчанию.
func (s State) Values() url.Values {
	values := url.Values{}

	if q := strings.TrimSpace(s.Query); q != "" {
		values.Set("q", q)
	}
	if s.Category != CategoryAll && s.Category != "" {
		values.Set("category", s.Category)
	}
	if s.Page > 1 {
		values.Set("page", strconv.Itoa(s.Page))
	}
	if s.SortToken != DefaultSortToken && s.SortToken != "" {
		values.Set("sort", s.SortToken)
	}

	return values
}

// SearchMode сообщает, находится ли витрина в режиме поиска.
// Режим поиска активен при непустой (после обрезки пробелов) поисковой строке.
func (s State) SearchMode() bool {
	return strings.TrimSpace(s.Query) != ""
}
