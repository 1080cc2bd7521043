package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tilda-bridge/finuslugi-proxy/internal/testutil"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/cache"
)

func newTestBuilder(source *testutil.FakeSheetSource, cacheManager *cache.Manager) *Builder {
	return NewBuilder(source, cacheManager, BuilderConfig{ColumnTTL: time.Hour}, zerolog.Nop())
}

func TestBuild_LifeAndTitleRows(t *testing.T) {
	source := &testutil.FakeSheetSource{
		SheetList: []*testutil.FakeSheet{
			{
				SheetTitle: "ВТБ",
				HeaderRow:  []string{"", "МАКС", "ВСК"},
				DataRows: [][]string{
					{"жизнь М", "", ""},
					{"30", "0.01", ""},
					{"титул", "0.02", "0.03"},
				},
			},
		},
	}

	builder := newTestBuilder(source, nil)

	columns, err := builder.Build(context.Background(), BuildParams{BankID: "vtb", CompanyID: "makc"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(columns) != 1 {
		t.Fatalf("got %d columns, want 1", len(columns))
	}

	items := columns[0].Items
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}

	life := items[0]
	if life.Kind != KindLife || life.Gender != GenderMale || life.Age != 30 {
		t.Errorf("life item = %+v, want male age 30", life)
	}
	if life.Value.String() != "0.01" {
		t.Errorf("life value = %s, want 0.01", life.Value)
	}

	title := items[1]
	if title.Kind != KindTitle || title.Value.String() != "0.02" {
		t.Errorf("title item = %+v, want value 0.02", title)
	}
}

// TestBuild_EmptyCellEmitsNothing checks absence-not-zero: an empty cell at
// a given row/column yields no item for that cell.
func TestBuild_EmptyCellEmitsNothing(t *testing.T) {
	source := &testutil.FakeSheetSource{
		SheetList: []*testutil.FakeSheet{
			{
				SheetTitle: "ВТБ",
				HeaderRow:  []string{"", "МАКС", "ВСК"},
				DataRows: [][]string{
					{"жизнь М", "", ""},
					{"30", "0.01", ""},
					{"титул", "0.02", "0.03"},
				},
			},
		},
	}

	builder := newTestBuilder(source, nil)

	columns, err := builder.Build(context.Background(), BuildParams{BankID: "vtb", CompanyID: "vsk"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(columns) != 1 {
		t.Fatalf("got %d columns, want 1", len(columns))
	}

	items := columns[0].Items
	if len(items) != 1 {
		t.Fatalf("got %d items, want only the title item: %+v", len(items), items)
	}
	if items[0].Kind != KindTitle || items[0].Value.String() != "0.03" {
		t.Errorf("item = %+v, want title 0.03", items[0])
	}
}

func TestParseColumn_PropertyLabels(t *testing.T) {
	rows := [][]string{
		{"Квартира", "0.002"},
		{"Дом деревянный", "0.004"},
		{"Дом каменный", "0.003"},
		{"Комната", "0.0025"},
		{"Апартаменты", "0.0028"},
		{"Машиноместо", "0.001"},
		{"Гараж", "0.005"}, // unrecognized, defaults to flat
	}

	items := parseColumn(rows, 1, "vtb", "makc")
	if len(items) != 7 {
		t.Fatalf("got %d items, want 7", len(items))
	}

	wants := []struct {
		propertyType PropertyType
		woodenFloor  bool
	}{
		{PropertyFlat, false},
		{PropertyHouse, true},
		{PropertyHouse, false},
		{PropertyRoom, false},
		{PropertyApartments, false},
		{PropertyParkingSpace, false},
		{PropertyFlat, false},
	}

	for i, want := range wants {
		item := items[i]
		if item.Kind != KindProperty {
			t.Errorf("item %d kind = %s, want property", i, item.Kind)
		}
		if item.PropertyType != want.propertyType || item.WoodenFloor != want.woodenFloor {
			t.Errorf("item %d = (%s, wooden=%v), want (%s, wooden=%v)",
				i, item.PropertyType, item.WoodenFloor, want.propertyType, want.woodenFloor)
		}
	}
}

func TestParseColumn_CommissionRows(t *testing.T) {
	rows := [][]string{
		{"КВ имущество", "0.0005"},
		{"КВ титул", "0.0003"},
		{"КВ жизнь", "0.0004"},
		{"КВ прочее", "0.01"}, // no recognizable keyword, omitted
	}

	items := parseColumn(rows, 1, "vtb", "makc")
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3: %+v", len(items), items)
	}

	wants := []CommissionType{CommissionProperty, CommissionTitle, CommissionLife}
	for i, want := range wants {
		if items[i].Kind != KindCommission || items[i].CommissionType != want {
			t.Errorf("item %d = %+v, want commission %s", i, items[i], want)
		}
	}
}

// TestParseColumn_GenderScan covers the stateful row classification: a life
// header applies to all following age rows until a non-age row clears it.
func TestParseColumn_GenderScan(t *testing.T) {
	rows := [][]string{
		{"жизнь М", ""},
		{"25", "0.01"},
		{"30", "0.012"},
		{"жизнь Ж", ""},
		{"25", "0.008"},
		{"Квартира", "0.002"}, // clears gender
		{"35", "0.02"},        // no gender active: property row, default flat
	}

	items := parseColumn(rows, 1, "vtb", "makc")
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5: %+v", len(items), items)
	}

	if items[0].Gender != GenderMale || items[0].Age != 25 {
		t.Errorf("item 0 = %+v, want male 25", items[0])
	}
	if items[1].Gender != GenderMale || items[1].Age != 30 {
		t.Errorf("item 1 = %+v, want male 30", items[1])
	}
	if items[2].Gender != GenderFemale || items[2].Age != 25 {
		t.Errorf("item 2 = %+v, want female 25", items[2])
	}
	if items[3].Kind != KindProperty || items[3].PropertyType != PropertyFlat {
		t.Errorf("item 3 = %+v, want flat property", items[3])
	}
	if items[4].Kind != KindProperty || items[4].PropertyType != PropertyFlat {
		t.Errorf("item 4 = %+v, want flat property (gender cleared)", items[4])
	}
}

// TestParseColumn_GenderMarkers checks the header marker classification,
// including full-word Latin markers where "female" must not read as male.
func TestParseColumn_GenderMarkers(t *testing.T) {
	tests := []struct {
		header string
		want   Gender
	}{
		{"жизнь М", GenderMale},
		{"жизнь Ж", GenderFemale},
		{"life m", GenderMale},
		{"life male", GenderMale},
		{"life f", GenderFemale},
		{"life female", GenderFemale},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			rows := [][]string{
				{tt.header, ""},
				{"40", "0.01"},
			}
			items := parseColumn(rows, 1, "vtb", "makc")
			if len(items) != 1 {
				t.Fatalf("got %d items, want 1: %+v", len(items), items)
			}
			if items[0].Gender != tt.want {
				t.Errorf("gender = %q, want %q", items[0].Gender, tt.want)
			}
		})
	}
}

func TestParseColumn_LocaleDecimalAndGarbage(t *testing.T) {
	rows := [][]string{
		{"Квартира", "0,0015"}, // comma decimal separator
		{"Комната", "n/a"},     // unparseable, omitted
		{"", "0.01"},           // empty label, row skipped
	}

	items := parseColumn(rows, 1, "vtb", "makc")
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1: %+v", len(items), items)
	}
	if items[0].Value.String() != "0.0015" {
		t.Errorf("value = %s, want 0.0015", items[0].Value)
	}
}

func TestBuild_BankFilter(t *testing.T) {
	source := &testutil.FakeSheetSource{
		SheetList: []*testutil.FakeSheet{
			{SheetTitle: "ВТБ", HeaderRow: []string{"", "МАКС"}, DataRows: [][]string{{"титул", "0.02"}}},
			{SheetTitle: "Сбербанк", HeaderRow: []string{"", "МАКС"}, DataRows: [][]string{{"титул", "0.05"}}},
		},
	}

	builder := newTestBuilder(source, nil)

	columns, err := builder.Build(context.Background(), BuildParams{BankID: "sberbank"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(columns) != 1 {
		t.Fatalf("got %d columns, want 1", len(columns))
	}
	if columns[0].BankID != "sberbank" || columns[0].Items[0].Value.String() != "0.05" {
		t.Errorf("column = %+v, want sberbank title 0.05", columns[0])
	}

	// Filtered-out sheet must not be loaded at all.
	if loads := source.SheetList[0].Loads(); loads != 0 {
		t.Errorf("filtered sheet was loaded %d times", loads)
	}
}

func TestBuild_NoFilterReturnsAllPairs(t *testing.T) {
	source := &testutil.FakeSheetSource{
		SheetList: []*testutil.FakeSheet{
			{SheetTitle: "ВТБ", HeaderRow: []string{"", "МАКС", "ВСК"}, DataRows: [][]string{{"титул", "0.02", "0.03"}}},
			{SheetTitle: "Сбербанк", HeaderRow: []string{"", "МАКС"}, DataRows: [][]string{{"титул", "0.05"}}},
		},
	}

	builder := newTestBuilder(source, nil)

	columns, err := builder.Build(context.Background(), BuildParams{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(columns))
	}
}

// setupTestRedis creates a test Redis client. Tests are skipped when no
// local Redis is reachable.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// TestBuild_CacheHitSkipsSheetIO verifies that a fully qualified build served
// from cache performs no spreadsheet reads.
func TestBuild_CacheHitSkipsSheetIO(t *testing.T) {
	redisClient := setupTestRedis(t)
	cacheManager := cache.NewManager(redisClient, cache.Config{}, zerolog.Nop())

	source := &testutil.FakeSheetSource{
		SheetList: []*testutil.FakeSheet{
			{SheetTitle: "ВТБ", HeaderRow: []string{"", "МАКС"}, DataRows: [][]string{{"титул", "0.02"}}},
		},
	}

	builder := newTestBuilder(source, cacheManager)
	ctx := context.Background()
	params := BuildParams{BankID: "vtb", CompanyID: "makc"}

	first, err := builder.Build(ctx, params)
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if lists := source.Lists(); lists != 1 {
		t.Fatalf("first build listed sheets %d times, want 1", lists)
	}

	second, err := builder.Build(ctx, params)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	if lists := source.Lists(); lists != 1 {
		t.Errorf("cached build touched the sheet source (%d lists)", lists)
	}

	if len(second) != 1 || len(second[0].Items) != len(first[0].Items) {
		t.Errorf("cached column differs: %+v vs %+v", second, first)
	}
	if second[0].Items[0].Value.String() != "0.02" {
		t.Errorf("cached value = %s, want 0.02", second[0].Items[0].Value)
	}
}
