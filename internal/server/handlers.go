package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ViSearch/internal/analysis"
	"ViSearch/internal/index"
	"ViSearch/internal/indexing"
	"ViSearch/internal/query"
	"ViSearch/internal/scoring"
)

// Analyze positions and offsets of consecutive values of a multi-valued
// text are separated by these gaps.
const (
	positionIncrementGap = 100
	offsetGap            = 1
)

type shardsInfo struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

func oneShard() shardsInfo {
	return shardsInfo{Total: 1, Successful: 1}
}

// --- Node ---

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":         s.nodeName,
		"cluster_name": s.clusterName,
		"version": fiber.Map{
			"number":       s.version,
			"distribution": DefaultName,
		},
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if name := c.Params("index"); name != "" {
		if _, err := s.indexes.GetIndex(name); err != nil {
			return err
		}
	}
	n := s.indexes.Len()
	return c.JSON(fiber.Map{
		"cluster_name":          s.clusterName,
		"status":                "green",
		"timed_out":             false,
		"number_of_nodes":       1,
		"number_of_data_nodes":  1,
		"active_primary_shards": n,
		"active_shards":         n,
		"unassigned_shards":     0,
	})
}

func (s *Server) handleNodePlugins(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"_nodes":       fiber.Map{"total": 1, "successful": 1, "failed": 0},
		"cluster_name": s.clusterName,
		"nodes": fiber.Map{
			s.nodeID: fiber.Map{
				"name":    s.nodeName,
				"version": s.version,
				"plugins": s.plugins.Infos(),
			},
		},
	})
}

func (s *Server) handleCatPlugins(c *fiber.Ctx) error {
	infos := s.plugins.Infos()
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{s.nodeName, info.Name, info.Version})
	}
	return sendTable(c, []string{"name", "component", "version"}, rows)
}

func (s *Server) handleCatIndices(c *fiber.Ctx) error {
	names := s.indexes.ListIndexes()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		inst, err := s.indexes.GetIndex(name)
		if err != nil {
			continue
		}
		info := inst.Info()
		rows = append(rows, []string{"green", "open", name, strconv.Itoa(info.Docs)})
	}
	return sendTable(c, []string{"health", "status", "index", "docs.count"}, rows)
}

// sendTable writes a _cat style plain text table; ?v adds the header row.
func sendTable(c *fiber.Ctx, header []string, rows [][]string) error {
	var sb strings.Builder
	if c.Context().QueryArgs().Has("v") {
		sb.WriteString(strings.Join(header, " "))
		sb.WriteByte('\n')
	}
	for _, row := range rows {
		sb.WriteString(strings.Join(row, " "))
		sb.WriteByte('\n')
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(sb.String())
}

// --- Analyze ---

type analyzeRequest struct {
	Analyzer string          `json:"analyzer"`
	Field    string          `json:"field"`
	Text     json.RawMessage `json:"text"`
}

type analyzeToken struct {
	Token       string `json:"token"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Type        string `json:"type"`
	Position    int    `json:"position"`
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if body := c.Body(); !emptyBody(body) {
		if err := decodeStrict(body, &req); err != nil {
			return badRequest("invalid analyze request: " + err.Error())
		}
	} else {
		req.Analyzer = c.Query("analyzer")
		req.Field = c.Query("field")
		if args := c.Context().QueryArgs(); args.Has("text") {
			req.Text, _ = json.Marshal(string(args.Peek("text")))
		}
	}

	texts, err := analyzeTexts(req.Text)
	if err != nil {
		return err
	}

	name := req.Analyzer
	keyword := false
	if indexName := c.Params("index"); indexName != "" {
		inst, err := s.indexes.GetIndex(indexName)
		if err != nil {
			return err
		}
		if name == "" {
			var ok bool
			name, ok = inst.Analyzer(req.Field)
			keyword = !ok
		}
	}
	if name == "" && !keyword {
		name = analysis.StandardAnalyzerName
	}

	start := time.Now()
	tokens := make([]analyzeToken, 0)
	position, offset := 0, 0
	for i, text := range texts {
		if i > 0 {
			position += positionIncrementGap
			offset += offsetGap
		}
		var toks []analysis.Token
		if keyword {
			toks = keywordTokens(text)
		} else {
			toks, err = s.analyzers.Analyze(name, req.Field, text)
			if err != nil {
				s.metrics.ObserveAnalyze(name, 0, time.Since(start), err)
				return err
			}
		}
		last := -1
		for _, t := range toks {
			tokens = append(tokens, analyzeToken{
				Token:       t.Term,
				StartOffset: offset + t.StartByte,
				EndOffset:   offset + t.EndByte,
				Type:        "word",
				Position:    position + t.Position,
			})
			last = t.Position
		}
		position += last + 1
		offset += len(*text)
	}
	if !keyword {
		s.metrics.ObserveAnalyze(name, len(tokens), time.Since(start), nil)
	}
	return c.JSON(fiber.Map{"tokens": tokens})
}

// analyzeTexts decodes the text of an analyze request: a string or an
// array of strings. Missing or null text is an invalid argument.
func analyzeTexts(raw json.RawMessage) ([]*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, analysis.ErrInvalidArgument
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []*string{&one}, nil
	}
	var many []*string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, badRequest("text must be a string or an array of strings")
	}
	for _, t := range many {
		if t == nil {
			return nil, analysis.ErrInvalidArgument
		}
	}
	return many, nil
}

func keywordTokens(text *string) []analysis.Token {
	if *text == "" {
		return nil
	}
	return []analysis.Token{{Term: *text, EndByte: len(*text)}}
}

// --- Index Lifecycle ---

type createIndexRequest struct {
	Mappings json.RawMessage `json:"mappings"`
	Settings struct {
		Analysis struct {
			DefaultAnalyzer string `json:"default_analyzer"`
		} `json:"analysis"`
	} `json:"settings"`
}

func (s *Server) handleCreateIndex(c *fiber.Ctx) error {
	name := c.Params("index")

	var req createIndexRequest
	if body := c.Body(); !emptyBody(body) {
		if err := json.Unmarshal(body, &req); err != nil {
			return badRequest("invalid create index request: " + err.Error())
		}
	}
	fields, err := index.ParseMapping(req.Mappings)
	if err != nil {
		return err
	}

	schema := &index.Schema{
		Fields:          fields,
		DefaultAnalyzer: req.Settings.Analysis.DefaultAnalyzer,
	}
	if _, err := s.indexes.CreateIndex(name, schema); err != nil {
		return err
	}
	s.metrics.SetIndexes(s.indexes.Len())

	return c.JSON(fiber.Map{
		"acknowledged":        true,
		"shards_acknowledged": true,
		"index":               name,
	})
}

func (s *Server) handleGetIndex(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	schema := inst.Schema()
	settings := fiber.Map{
		"creation_date": strconv.FormatInt(inst.CreatedAt.UnixMilli(), 10),
		"analysis": fiber.Map{
			"default_analyzer": schema.IndexAnalyzer(index.FieldDef{}),
		},
	}
	return c.JSON(fiber.Map{
		inst.Name: fiber.Map{
			"mappings": schema.Mapping(),
			"settings": fiber.Map{"index": settings},
			"stats":    inst.Info(),
		},
	})
}

func (s *Server) handleDeleteIndex(c *fiber.Ctx) error {
	if err := s.indexes.DeleteIndex(c.Params("index")); err != nil {
		return err
	}
	s.metrics.SetIndexes(s.indexes.Len())
	return c.JSON(fiber.Map{"acknowledged": true})
}

func (s *Server) handleGetMapping(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		inst.Name: fiber.Map{"mappings": inst.Schema().Mapping()},
	})
}

func (s *Server) handlePutMapping(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	fields, err := index.ParseMapping(c.Body())
	if err != nil {
		return err
	}
	if _, err := inst.PutMapping(fields); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"acknowledged": true})
}

// --- Documents ---

// refreshRequested reports whether ?refresh asks for an immediate refresh.
// A bare ?refresh counts; wait_for behaves like true on a single node.
func refreshRequested(c *fiber.Ctx) bool {
	args := c.Context().QueryArgs()
	if !args.Has("refresh") {
		return false
	}
	return string(args.Peek("refresh")) != "false"
}

func (s *Server) handleIndexDocument(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	var source map[string]any
	if err := json.Unmarshal(c.Body(), &source); err != nil {
		return badRequest("document body must be a JSON object: " + err.Error())
	}
	if source == nil {
		return badRequest("document body must be a JSON object")
	}

	created, err := inst.IndexDocument(indexing.Document{ID: id, Source: source})
	if err != nil {
		return err
	}
	s.metrics.ObserveDocument(inst.Name, "index")

	refreshed, err := s.maybeRefresh(c, inst)
	if err != nil {
		return err
	}

	result, status := "updated", fiber.StatusOK
	if created {
		result, status = "created", fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"_index":         inst.Name,
		"_id":            id,
		"result":         result,
		"forced_refresh": refreshed,
		"_shards":        oneShard(),
	})
}

func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	id := c.Params("id")
	source, err := inst.GetDocument(id)
	if errors.Is(err, ErrDocumentNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"_index": inst.Name,
			"_id":    id,
			"found":  false,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"_index":  inst.Name,
		"_id":     id,
		"found":   true,
		"_source": source,
	})
}

func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	id := c.Params("id")
	err = inst.DeleteDocument(id)
	if errors.Is(err, ErrDocumentNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"_index": inst.Name,
			"_id":    id,
			"result": "not_found",
		})
	}
	if err != nil {
		return err
	}
	s.metrics.ObserveDocument(inst.Name, "delete")

	refreshed, err := s.maybeRefresh(c, inst)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"_index":         inst.Name,
		"_id":            id,
		"result":         "deleted",
		"forced_refresh": refreshed,
		"_shards":        oneShard(),
	})
}

func (s *Server) maybeRefresh(c *fiber.Ctx, inst *IndexInstance) (bool, error) {
	if !refreshRequested(c) {
		return false, nil
	}
	if _, err := s.refresh(inst); err != nil {
		return false, err
	}
	return true, nil
}

// --- Refresh ---

func (s *Server) refresh(inst *IndexInstance) (RefreshResult, error) {
	res, err := inst.Refresh()
	if err != nil {
		return res, err
	}
	if res.Changed {
		s.metrics.ObserveRefresh(inst.Name)
	}
	return res, nil
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	if _, err := s.refresh(inst); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"_shards": oneShard()})
}

func (s *Server) handleRefreshAll(c *fiber.Ctx) error {
	names := s.indexes.ListIndexes()
	shards := shardsInfo{Total: len(names)}
	for _, name := range names {
		inst, err := s.indexes.GetIndex(name)
		if err != nil {
			// Deleted concurrently.
			shards.Total--
			continue
		}
		if _, err := s.refresh(inst); err != nil {
			shards.Failed++
			s.logger.Warn("refresh failed", zap.String("index", name), zap.Error(err))
			continue
		}
		shards.Successful++
	}
	return c.JSON(fiber.Map{"_shards": shards})
}

// --- Search ---

type searchHit struct {
	Index       string               `json:"_index"`
	ID          string               `json:"_id"`
	Score       float32              `json:"_score"`
	Source      map[string]any       `json:"_source,omitempty"`
	Explanation *scoring.Explanation `json:"_explanation,omitempty"`
}

type totalHits struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

type searchHits struct {
	Total    totalHits   `json:"total"`
	MaxScore *float32    `json:"max_score"`
	Hits     []searchHit `json:"hits"`
}

type searchResponse struct {
	Took     int64      `json:"took"`
	TimedOut bool       `json:"timed_out"`
	Shards   shardsInfo `json:"_shards"`
	Hits     searchHits `json:"hits"`
}

// searchRequest decodes the body and applies from/size query parameters.
func searchRequest(c *fiber.Ctx) (query.SearchRequest, error) {
	req, err := query.ParseSearchRequest(c.Body())
	if err != nil {
		return req, err
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"from", &req.From}, {"size", &req.Size}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: %s=%q is not an integer", query.ErrInvalidQuery, p.name, v)
		}
		*p.dst = n
	}
	return req, req.Validate()
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	req, err := searchRequest(c)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := inst.Search(c.UserContext(), req)
	s.metrics.ObserveSearch(inst.Name, time.Since(start), err)
	if err != nil {
		return err
	}

	resp := searchResponse{
		Took:     res.Took.Milliseconds(),
		TimedOut: res.TimedOut,
		Shards:   oneShard(),
		Hits: searchHits{
			Total: totalHits{Value: res.Total, Relation: "eq"},
			Hits:  make([]searchHit, 0, len(res.Hits)),
		},
	}
	if res.Total > 0 {
		maxScore := res.MaxScore
		resp.Hits.MaxScore = &maxScore
	}
	for _, h := range res.Hits {
		resp.Hits.Hits = append(resp.Hits.Hits, searchHit{
			Index:       inst.Name,
			ID:          h.ID,
			Score:       h.Score,
			Source:      h.Source,
			Explanation: h.Explanation,
		})
	}
	return c.JSON(resp)
}

func (s *Server) handleCount(c *fiber.Ctx) error {
	inst, err := s.indexes.GetIndex(c.Params("index"))
	if err != nil {
		return err
	}
	req, err := query.ParseSearchRequest(c.Body())
	if err != nil {
		return err
	}
	req.From, req.Size, req.Source = 0, 0, false

	start := time.Now()
	res, err := inst.Search(c.UserContext(), req)
	s.metrics.ObserveSearch(inst.Name, time.Since(start), err)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": res.Total, "_shards": oneShard()})
}
