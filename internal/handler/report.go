package handler

import (
	"net/http"
	"strconv"

	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/beevik/etree"
)

// Summary handles GET /reports/summary. format=xml returns an XML document.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.svc.Summary(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") != "xml" {
		h.writeJSON(w, http.StatusOK, summary)
		return
	}

	doc := summaryXML(summary)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := doc.WriteTo(w); err != nil {
		h.log.Errorf("Failed to write XML summary: %v", err)
	}
}

func summaryXML(s *models.ExpenseSummary) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ExpenseSummary")
	if !s.From.IsZero() {
		root.CreateAttr("from", s.From.Format("2006-01-02"))
	}
	if !s.To.IsZero() {
		root.CreateAttr("to", s.To.Format("2006-01-02"))
	}
	root.CreateElement("Count").SetText(strconv.Itoa(s.Count))
	root.CreateElement("Total").SetText(s.Total.StringFixed(2))

	groups := func(name string, totals []models.GroupTotal) {
		el := root.CreateElement(name)
		for _, g := range totals {
			item := el.CreateElement("Group")
			item.CreateAttr("key", g.Key)
			item.CreateAttr("count", strconv.Itoa(g.Count))
			item.SetText(g.Total.StringFixed(2))
		}
	}
	groups("ByCategory", s.ByCategory)
	groups("ByPaymentMethod", s.ByPaymentMethod)

	doc.Indent(2)
	return doc
}
