package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luckybee/storefront-system/internal/model"
	"github.com/luckybee/storefront-system/internal/repository"
	"github.com/luckybee/storefront-system/internal/search"
)

const searchDebounce = 300 * time.Millisecond

// Repository описывает контракт доступа к товарам, используемый витриной.
type Repository interface {
	CountProducts(ctx context.Context, filter repository.ProductFilter) (int, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter, sort repository.ProductSort, limit int, after string) ([]model.Product, string, error)
}

// Searcher описывает контракт поискового индекса, используемый витриной.
type Searcher interface {
	Search(ctx context.Context, query string, hitsPerPage int) (*search.Result, error)
}

// Mode — режим витрины: просмотр коллекции или полнотекстовый поиск.
type Mode string

const (
	ModeBrowse Mode = "browse"
	ModeSearch Mode = "search"
)

// Page — один результат витрины: страница товаров либо результаты поиска.
// В режиме поиска пагинация не применяется и TotalPages равен нулю.
type Page struct {
	Mode       Mode
	Products   []model.Product
	Total      int
	TotalPages int
	PageNumber int
}

// Browser — компонент витрины каталога для одной пользовательской сессии.
//
// Внутри живёт кеш курсоров пагинации по номерам страниц. Хранилище умеет
// только курсор "после последнего документа", поэтому холодный переход на
// страницу N воспроизводит выборку со страницы 1, кешируя промежуточные
// курсоры. Это O(N) обращений и осознанная цена курсорной пагинации.
type Browser struct {
	repo     Repository
	searcher Searcher
	logger   *zap.Logger
	pageSize int

	mu         sync.Mutex
	state      State
	status     model.ProductStatus
	cursors    map[int]string
	categories []string
	lastPage   Page

	searchSeq   int64
	searchTimer *time.Timer
	onResults   func(Page)
}

// NewBrowser создаёт витрину каталога с указанным состоянием.
func NewBrowser(repo Repository, searcher Searcher, logger *zap.Logger, pageSize int, state State) *Browser {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if state.Page < 1 {
		state.Page = 1
	}
	if state.Category == "" {
		state.Category = CategoryAll
	}
	if state.SortToken == "" {
		state.SortToken = DefaultSortToken
	}

	return &Browser{
		repo:     repo,
		searcher: searcher,
		logger:   logger,
		pageSize: pageSize,
		state:    state,
		status:   model.ProductStatusActive,
		cursors:  make(map[int]string),
	}
}

// SetStatusFilter меняет фильтр статуса товаров. Витрина покупателя всегда
// показывает только активные товары; административный список может
// просматривать черновики и архив. Смена фильтра инвалидирует кеш курсоров.
func (b *Browser) SetStatusFilter(status model.ProductStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if status == b.status {
		return
	}

	b.status = status
	b.state.Page = 1
	b.cursors = make(map[int]string)
}

// State возвращает текущее состояние витрины.
func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetCategory меняет фильтр категории. Смена категории сбрасывает страницу
// на первую и инвалидирует кеш курсоров: курсоры прежней выборки не имеют
// смысла для нового порядка результатов.
func (b *Browser) SetCategory(category string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if category == b.state.Category {
		return
	}

	b.state.Category = category
	b.state.Page = 1
	b.cursors = make(map[int]string)
}

// SetSort меняет сортировку. Поведение аналогично SetCategory.
func (b *Browser) SetSort(token string) {
	token = SortFromToken(token).Token()

	b.mu.Lock()
	defer b.mu.Unlock()

	if token == b.state.SortToken {
		return
	}

	b.state.SortToken = token
	b.state.Page = 1
	b.cursors = make(map[int]string)
}

// SetPage переходит на указанную страницу, не трогая кеш курсоров.
func (b *Browser) SetPage(page int) {
	if page < 1 {
		page = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Page = page
}

// Browse возвращает страницу каталога согласно текущему состоянию.
// При ошибке чтения возвращается последняя успешная страница вместе с ошибкой:
// витрина показывает устаревшие данные вместо пустого экрана.
func (b *Browser) Browse(ctx context.Context) (Page, error) {
	b.mu.Lock()
	state := b.state
	status := b.status
	b.mu.Unlock()

	filter := repository.ProductFilter{Status: status}
	if state.Category != CategoryAll {
		filter.Category = state.Category
	}
	productSort := SortFromToken(state.SortToken).ProductSort()

	total, err := b.repo.CountProducts(ctx, filter)
	if err != nil {
		b.logger.Error("count products error", zap.Error(err))
		return b.stale(), err
	}

	products, cursor, err := b.fetchPage(ctx, filter, productSort, state.Page)
	if err != nil {
		b.logger.Error("fetch products error", zap.Error(err), zap.Int("page", state.Page))
		return b.stale(), err
	}

	b.mu.Lock()
	if cursor != "" {
		b.cursors[state.Page] = cursor
	}
	page := Page{
		Mode:       ModeBrowse,
		Products:   products,
		Total:      total,
		TotalPages: (total + b.pageSize - 1) / b.pageSize,
		PageNumber: state.Page,
	}
	b.lastPage = page
	b.mu.Unlock()

	return page, nil
}

// fetchPage выбирает товары целевой страницы, при необходимости воспроизводя
// выборку с первой страницы для прогрева кеша курсоров.
func (b *Browser) fetchPage(ctx context.Context, filter repository.ProductFilter, productSort repository.ProductSort, page int) ([]model.Product, string, error) {
	b.mu.Lock()
	prev, havePrev := b.cursors[page-1]
	b.mu.Unlock()

	if page == 1 {
		return b.repo.ListProducts(ctx, filter, productSort, b.pageSize, "")
	}

	if havePrev {
		return b.repo.ListProducts(ctx, filter, productSort, b.pageSize, prev)
	}

	after := ""
	for i := 1; i < page; i++ {
		products, cursor, err := b.repo.ListProducts(ctx, filter, productSort, b.pageSize, after)
		if err != nil {
			return nil, "", err
		}
		if len(products) == 0 {
			break
		}

		b.mu.Lock()
		b.cursors[i] = cursor
		b.mu.Unlock()

		after = cursor
	}

	return b.repo.ListProducts(ctx, filter, productSort, b.pageSize, after)
}

func (b *Browser) stale() Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPage
}

// Categories возвращает список категорий фильтра: "All" плюс отличные друг от
// друга категории активных товаров в алфавитном порядке. Список вычисляется
// один раз на экземпляр витрины.
func (b *Browser) Categories(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	cached := b.categories
	b.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	filter := repository.ProductFilter{Status: model.ProductStatusActive}
	productSort := repository.ProductSort{Field: repository.SortFieldName}

	products, _, err := b.repo.ListProducts(ctx, filter, productSort, 0, "")
	if err != nil {
		b.logger.Error("fetch categories error", zap.Error(err))
		return nil, err
	}

	seen := make(map[string]bool)
	categories := []string{CategoryAll}
	var distinct []string
	for _, p := range products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			distinct = append(distinct, p.Category)
		}
	}
	sort.Strings(distinct)
	categories = append(categories, distinct...)

	b.mu.Lock()
	b.categories = categories
	b.mu.Unlock()

	return categories, nil
}

// SetQuery меняет поисковую строку. Непустая строка переводит витрину в режим
// поиска, сбрасывает страницу и планирует отложенный поиск: пока пользователь
// печатает, запускается только последний запрос (trailing debounce 300 мс).
func (b *Browser) SetQuery(query string) {
	b.mu.Lock()

	b.state.Query = query
	if strings.TrimSpace(query) != "" {
		b.state.Page = 1
	}

	if b.searchTimer != nil {
		b.searchTimer.Stop()
		b.searchTimer = nil
	}

	handler := b.onResults
	if handler == nil || strings.TrimSpace(query) == "" {
		b.mu.Unlock()
		return
	}

	b.searchTimer = time.AfterFunc(searchDebounce, func() {
		page, err := b.Search(context.Background())
		if err != nil {
			return
		}
		handler(page)
	})
	b.mu.Unlock()
}

// OnSearchResults задаёт обработчик, которому доставляются результаты
// отложенных поисков.
func (b *Browser) OnSearchResults(handler func(Page)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onResults = handler
}

// Search выполняет поиск по текущей поисковой строке немедленно.
//
// Каждому запросу присваивается монотонный порядковый номер; результат,
// пришедший после того как был выпущен более новый запрос, отбрасывается —
// медленный ранний ответ не может затереть быстрый поздний.
func (b *Browser) Search(ctx context.Context) (Page, error) {
	b.mu.Lock()
	query := strings.TrimSpace(b.state.Query)
	b.searchSeq++
	seq := b.searchSeq
	b.mu.Unlock()

	if query == "" {
		return Page{Mode: ModeSearch, PageNumber: 1}, nil
	}

	result, err := b.searcher.Search(ctx, query, b.pageSize)
	if err != nil {
		b.logger.Error("search error", zap.Error(err), zap.String("query", query))
		return b.stale(), err
	}

	// Индекс может содержать устаревшие записи: неактивные товары
	// отфильтровываются на стороне вызывающего.
	var products []model.Product
	for _, hit := range result.Hits {
		if hit.Status != "" && hit.Status != string(model.ProductStatusActive) {
			continue
		}
		products = append(products, hitToProduct(hit))
	}

	page := Page{
		Mode:       ModeSearch,
		Products:   products,
		Total:      len(products),
		PageNumber: 1,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.searchSeq {
		// Пока шёл запрос, был выпущен более новый: этот результат устарел.
		return b.lastPage, nil
	}

	b.lastPage = page
	return page, nil
}

// hitToProduct приводит результат поискового индекса к доменному товару.
// Отсутствующие необязательные атрибуты получают нулевые значения.
func hitToProduct(hit search.Hit) model.Product {
	p := model.Product{
		ID:       hit.ObjectID,
		Name:     hit.Name,
		SKU:      hit.SKU,
		Category: hit.Category,
		Slug:     hit.Slug,
		Images:   hit.Images,
		Status:   model.ProductStatusActive,
	}

	if hit.Status != "" {
		p.Status = model.ProductStatus(hit.Status)
	}
	if hit.WholesalePrice != nil {
		p.WholesalePrice = *hit.WholesalePrice
	}
	if hit.RetailPrice != nil {
		p.RetailPrice = *hit.RetailPrice
	}
	if hit.HasBoxOption != nil {
		p.HasBoxOption = *hit.HasBoxOption
	}
	if hit.BoxWholesalePrice != nil {
		p.BoxWholesalePrice = hit.BoxWholesalePrice
	}
	if hit.Inventory != nil {
		p.Inventory = *hit.Inventory
	}

	return p
}
