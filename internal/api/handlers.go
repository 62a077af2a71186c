package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gotidy/ptr"

	"github.com/peakplanner/peakplanner_core/internal/cache"
	"github.com/peakplanner/peakplanner_core/internal/cover"
	"github.com/peakplanner/peakplanner_core/internal/db"
	"github.com/peakplanner/peakplanner_core/internal/geo"
	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
	"github.com/peakplanner/peakplanner_core/internal/output"
)

// Server serves plan computation over a pre-enumerated hike list.
type Server struct {
	g           *graph.Graph
	hikes       []models.Hike
	asm         *output.Assembler
	fingerprint string
	useCache    bool
	useDB       bool
}

// NewServer wires the handlers over a loaded network and hike list.
func NewServer(g *graph.Graph, hikes []models.Hike, useCache, useDB bool) *Server {
	return &Server{
		g:           g,
		hikes:       hikes,
		asm:         output.NewAssembler(g),
		fingerprint: cache.HikesFingerprint(hikes),
		useCache:    useCache,
		useDB:       useDB,
	}
}

// HikeSummary is one hike in a listing response. Cost is present only
// when a non-loop penalty made it diverge from the true distance.
type HikeSummary struct {
	DKm   float64  `json:"d_km"`
	DMi   float64  `json:"d_mi"`
	EleM  int      `json:"ele_m"`
	Loop  bool     `json:"loop"`
	Nodes []int64  `json:"nodes"`
	Peaks []string `json:"peaks"`
	Cost  *float64 `json:"cost,omitempty"`
}

// PlanResponse is the computed plan with its totals.
type PlanResponse struct {
	TotalKm   float64       `json:"total_km"`
	TotalMi   float64       `json:"total_mi"`
	TotalCost float64       `json:"total_cost"`
	NumHikes  int           `json:"num_hikes"`
	Hikes     []HikeSummary `json:"hikes"`
}

// Health handles the /health endpoint
func (s *Server) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	checks := fiber.Map{
		"hikes": fmt.Sprintf("%d loaded", len(s.hikes)),
	}
	healthy := true

	if s.useCache {
		redisStatus := "ok"
		if err := cache.HealthCheck(ctx); err != nil {
			redisStatus = err.Error()
			healthy = false
		}
		checks["redis"] = redisStatus
	}
	if s.useDB {
		dbStatus := "ok"
		if err := db.HealthCheck(ctx); err != nil {
			dbStatus = err.Error()
			healthy = false
		}
		checks["database"] = dbStatus
	}

	status := "healthy"
	httpStatus := 200
	if !healthy {
		status = "unhealthy"
		httpStatus = 503
	}
	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

// Peaks handles GET /v1/peaks
func (s *Server) Peaks(c *fiber.Ctx) error {
	type peakInfo struct {
		ID   int64   `json:"id"`
		Code string  `json:"code,omitempty"`
		Name string  `json:"name"`
		Lon  float64 `json:"lon"`
		Lat  float64 `json:"lat"`
	}
	var peaks []peakInfo
	for _, id := range s.g.Peaks() {
		v, _ := s.g.Vertex(id)
		peaks = append(peaks, peakInfo{ID: v.ID, Code: v.Code, Name: v.Name, Lon: v.Lon, Lat: v.Lat})
	}
	return c.JSON(fiber.Map{"peaks": peaks})
}

// Hikes handles GET /v1/hikes with the categorical filters.
func (s *Server) Hikes(c *fiber.Ctx) error {
	loopsOnly := c.QueryBool("loops_only", false)
	maxMi := c.QueryFloat("max_mi", 0)

	var out []HikeSummary
	for _, h := range s.hikes {
		if loopsOnly && !h.IsLoop() {
			continue
		}
		if maxMi > 0 && h.DKm*geo.MiPerKm > maxMi {
			continue
		}
		out = append(out, s.summarize(h))
	}
	return c.JSON(fiber.Map{"count": len(out), "hikes": out})
}

// Plan handles GET /v1/plan: run set cover over the hike list with the
// query's solver options.
func (s *Server) Plan(c *fiber.Ctx) error {
	opts, required, err := s.parsePlanQuery(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	plan, err := s.computePlan(c.Context(), opts, required)
	if err != nil {
		return planError(c, err)
	}

	if c.Query("format") == "geojson" {
		fc, err := s.asm.PlanFeatureCollection(*plan)
		if err != nil {
			return fmt.Errorf("failed to assemble plan: %w", err)
		}
		return c.JSON(fc)
	}
	return c.JSON(s.planResponse(*plan))
}

// SavePlan handles POST /v1/plans: compute a plan and persist it.
func (s *Server) SavePlan(c *fiber.Ctx) error {
	if !s.useDB {
		return c.Status(503).JSON(fiber.Map{"error": "plan persistence is disabled"})
	}
	opts, required, err := s.parsePlanQuery(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	name := c.Query("name")
	if name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "missing required parameter: name"})
	}

	plan, err := s.computePlan(c.Context(), opts, required)
	if err != nil {
		return planError(c, err)
	}

	pool, err := db.GetDB()
	if err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	id, err := db.SavePlan(c.Context(), pool, name, opts, *plan)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"id": id, "name": name, "plan": s.planResponse(*plan)})
}

// ListPlans handles GET /v1/plans
func (s *Server) ListPlans(c *fiber.Ctx) error {
	if !s.useDB {
		return c.Status(503).JSON(fiber.Map{"error": "plan persistence is disabled"})
	}
	pool, err := db.GetDB()
	if err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	plans, err := db.ListPlans(c.Context(), pool, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}

	type planInfo struct {
		ID        int64         `json:"id"`
		Name      string        `json:"name"`
		Options   cover.Options `json:"options"`
		TotalKm   float64       `json:"total_km"`
		NumHikes  int           `json:"num_hikes"`
		CreatedAt time.Time     `json:"created_at"`
	}
	out := make([]planInfo, len(plans))
	for i, sp := range plans {
		out[i] = planInfo{
			ID:        sp.ID,
			Name:      sp.Name,
			Options:   sp.Options,
			TotalKm:   sp.Plan.TotalKm,
			NumHikes:  len(sp.Plan.Hikes),
			CreatedAt: sp.CreatedAt,
		}
	}
	return c.JSON(fiber.Map{"plans": out})
}

// GetSavedPlan handles GET /v1/plans/:id
func (s *Server) GetSavedPlan(c *fiber.Ctx) error {
	if !s.useDB {
		return c.Status(503).JSON(fiber.Map{"error": "plan persistence is disabled"})
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid plan id"})
	}
	pool, err := db.GetDB()
	if err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	sp, err := db.GetPlan(c.Context(), pool, int64(id))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"id":      sp.ID,
		"name":    sp.Name,
		"options": sp.Options,
		"plan":    s.planResponse(sp.Plan),
	})
}

// parsePlanQuery extracts solver options and the required peak set from
// the request.
func (s *Server) parsePlanQuery(c *fiber.Ctx) (cover.Options, []int64, error) {
	opts := cover.Options{
		MaxIterations:    c.QueryInt("max_iterations", cover.DefaultMaxIterations),
		NonLoopPenaltyKm: c.QueryFloat("non_loop_penalty_km", 0),
		LoopsOnly:        c.QueryBool("loops_only", false),
	}
	if maxMi := c.QueryFloat("max_day_hike_mi", 0); maxMi > 0 {
		opts.MaxHikeKm = maxMi / geo.MiPerKm
	}

	required := s.g.Peaks()
	if codes := c.Query("peaks"); codes != "" {
		codeToID := make(map[string]int64)
		for _, id := range s.g.Peaks() {
			v, _ := s.g.Vertex(id)
			if v.Code != "" {
				codeToID[v.Code] = id
			}
		}
		required = nil
		for _, code := range strings.Split(codes, ",") {
			id, ok := codeToID[strings.TrimSpace(code)]
			if !ok {
				return opts, nil, fmt.Errorf("unknown peak code %q", code)
			}
			required = append(required, id)
		}
	}
	return opts, required, nil
}

// computePlan runs set cover with caching, using a lock so that identical
// concurrent requests compute only once.
func (s *Server) computePlan(ctx context.Context, opts cover.Options, required []int64) (*models.Plan, error) {
	if !s.useCache {
		plan, err := cover.Solve(s.hikes, required, opts)
		if err != nil {
			return nil, err
		}
		return &plan, nil
	}

	cacheKey := cache.PlanKey(opts, s.fingerprint, required)
	lockKey := cache.LockKey(cacheKey)

	cached, err := cache.GetPlan(ctx, cacheKey)
	if err == nil && cached != nil {
		return cached, nil
	}

	acquired, err := cache.AcquireLock(ctx, lockKey, 30*time.Second)
	if err != nil {
		log.Printf("Failed to acquire lock: %v", err)
		// Continue without lock (degrade gracefully)
	} else if !acquired {
		cached, err := cache.WaitForLock(ctx, cacheKey, 10*time.Second)
		if err == nil && cached != nil {
			return cached, nil
		}
		// If waiting failed, compute anyway
	}

	defer func() {
		if acquired {
			cache.ReleaseLock(ctx, lockKey)
		}
	}()

	plan, err := cover.Solve(s.hikes, required, opts)
	if err != nil {
		return nil, err
	}

	if err := cache.SetPlan(ctx, cacheKey, &plan, cache.LoadConfigFromEnv().TTL); err != nil {
		log.Printf("Failed to cache plan: %v", err)
	}
	return &plan, nil
}

func (s *Server) summarize(h models.Hike) HikeSummary {
	sum := HikeSummary{
		DKm:   h.DKm,
		DMi:   h.DKm * geo.MiPerKm,
		EleM:  h.EleGainM,
		Loop:  h.IsLoop(),
		Nodes: h.Nodes,
	}
	for _, p := range h.Peaks() {
		if v, ok := s.g.Vertex(p); ok {
			sum.Peaks = append(sum.Peaks, v.Name)
		}
	}
	if h.Cost != h.DKm {
		sum.Cost = ptr.Float64(h.Cost)
	}
	return sum
}

func (s *Server) planResponse(plan models.Plan) PlanResponse {
	resp := PlanResponse{
		TotalKm:   plan.TotalKm,
		TotalMi:   plan.TotalKm * geo.MiPerKm,
		TotalCost: plan.TotalCost,
		NumHikes:  len(plan.Hikes),
	}
	for _, h := range plan.Hikes {
		resp.Hikes = append(resp.Hikes, s.summarize(h))
	}
	return resp
}

func planError(c *fiber.Ctx, err error) error {
	if graphErr(err) {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	return err
}

func graphErr(err error) bool {
	return errors.Is(err, cover.ErrInfeasibleCover) || errors.Is(err, graph.ErrMissingVertex)
}
