package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("public_id", "status").
		From("draft_leagues").
		Where(Eq("public_id", "l1"), IsNull("deleted_at")).
		OrderBy("id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id, status FROM draft_leagues WHERE public_id = $1 AND deleted_at IS NULL ORDER BY id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "l1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ForUpdate(t *testing.T) {
	query, args, err := Select("status").
		From("draft_leagues").
		Where(Eq("public_id", "l1"), Expr("pick_deadline <= ?", "now")).
		ForUpdate().
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT status FROM draft_leagues WHERE public_id = $1 AND pick_deadline <= $2 FOR UPDATE"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[1] != "now" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_MultiRow(t *testing.T) {
	query, args, err := InsertInto("draft_picks").
		Columns("league_public_id", "overall_pick").
		Values("l1", 1).
		Values("l1", 2).
		Suffix("ON CONFLICT (league_public_id, overall_pick) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO draft_picks (league_public_id, overall_pick) VALUES ($1, $2), ($3, $4) ON CONFLICT (league_public_id, overall_pick) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[3] != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	type audit struct {
		CreatedAt string `db:"created_at"`
	}
	type row struct {
		audit
		PublicID    string  `db:"public_id"`
		Payload     string  `db:"payload"`
		PublishedAt *string `db:"published_at,readonly"`
		Skipped     string  `db:"-"`
		internal    string
	}

	query, args, err := InsertModel("draft_events", row{audit: audit{CreatedAt: "now"}, PublicID: "e1", Payload: "{}", internal: "x"}, "ON CONFLICT (public_id) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}

	wantQuery := "INSERT INTO draft_events (created_at, public_id, payload) VALUES ($1, $2, $3) ON CONFLICT (public_id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[1] != "e1" {
		t.Fatalf("unexpected args: %+v", args)
	}

	cols := ColumnsOf(row{})
	if len(cols) != 4 || cols[3] != "published_at" {
		t.Fatalf("expected readonly column to be selectable, got %v", cols)
	}
}

func TestInsertModel_Invalid(t *testing.T) {
	if _, _, err := InsertModel("draft_events", nil, ""); err == nil {
		t.Fatalf("expected error for nil model")
	}
	var ptr *struct{}
	if _, _, err := InsertModel("draft_events", ptr, ""); err == nil {
		t.Fatalf("expected error for nil pointer model")
	}
	if _, _, err := InsertModel("draft_events", struct{ Name string }{Name: "x"}, ""); err == nil {
		t.Fatalf("expected error for model without db tags")
	}
	if cols := ColumnsOf(42); cols != nil {
		t.Fatalf("expected no columns for non-struct, got %v", cols)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("draft_picks").
		Columns("league_public_id", "overall_pick").
		Values("l1").
		ToSQL()
	if err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestIn_Empty(t *testing.T) {
	query, args, err := Update("draft_events").
		Set("published_at", "now").
		Where(In("public_id", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}
	if query != "UPDATE draft_events SET published_at = $1 WHERE 1=0" || len(args) != 1 {
		t.Fatalf("unexpected query %q args=%v", query, args)
	}
}

func TestExpr_WithoutArgsKeepsMarkers(t *testing.T) {
	query, args, err := Select("public_id").
		From("draft_events").
		Where(Expr("payload ? 'asset_id'"), Eq("league_public_id", "l1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	want := "SELECT public_id FROM draft_events WHERE payload ? 'asset_id' AND league_public_id = $1"
	if query != want || len(args) != 1 {
		t.Fatalf("unexpected query %q args=%v", query, args)
	}
}
