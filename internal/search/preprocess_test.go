package search

import "testing"

func TestFlattenTables_NoTable_ReturnsInput(t *testing.T) {
	in := "第一段\n\n第二段"
	if got := FlattenTables(in); got != in {
		t.Fatalf("got %q", got)
	}
	in = "价格 | 规格 说明"
	if got := FlattenTables(in); got != in {
		t.Fatalf("pipe outside table should be untouched, got %q", got)
	}
}

func TestFlattenTables_RowsBecomeFacts(t *testing.T) {
	in := "产品参数\n| 项目 | 数值 |\n|---|:---:|\n| 产地 | 江西赣州 |\n| 规格 | 5斤装 |\n\n结尾说明"
	want := "产品参数\n\n项目 数值\n\n产地 江西赣州\n\n规格 5斤装\n\n结尾说明\n"
	if got := FlattenTables(in); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestFlattenTables_FeedsIndex(t *testing.T) {
	idx := NewIndex([]Document{{ID: "d", Text: "| 产地 | 江西赣州 |\n| 糖度 | 13度以上 |"}}, WithMinParagraphRunes(0))
	res := idx.TopK("糖度", 5)
	if len(res) != 1 || res[0].Snippet != "糖度 13度以上" {
		t.Fatalf("table row not indexed as its own fact: %+v", res)
	}
}
