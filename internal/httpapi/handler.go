package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"polytechnic/internal/attendance"
	"polytechnic/internal/auth"
	"polytechnic/internal/config"
	"polytechnic/internal/queue"
	"polytechnic/internal/rewardfine"
	"polytechnic/internal/schedule"
	"polytechnic/internal/store"
)

const dateLayout = "2006-01-02"

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	cfg       config.App
	att       *attendance.Service
	schedules *schedule.Service
	rewards   *rewardfine.Repository
	staff     *auth.Repository
	q         queue.Queue
	db        *store.DB
	redis     *store.Redis
	log       *zap.Logger
}

// New creates a handler.
func New(cfg config.App, att *attendance.Service, schedules *schedule.Service,
	rewards *rewardfine.Repository, staff *auth.Repository, q queue.Queue,
	db *store.DB, redis *store.Redis, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		cfg: cfg, att: att, schedules: schedules, rewards: rewards,
		staff: staff, q: q, db: db, redis: redis, log: log,
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	dbHealthy := h.db != nil && h.db.Client.PingContext(c.Request.Context()) == nil
	redisHealthy := h.redis.Healthy(c.Request.Context())
	status := http.StatusOK
	if !dbHealthy || !redisHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "redis": redisHealthy})
}

// ---------- Staff registration / token issue ----------

type registerRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
	Name    string `json:"name"`
	Role    string `json:"role" binding:"required,oneof=admin staff"`
}

func (h *Handler) RegisterStaff(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.staff.UpsertStaff(c.Request.Context(), req.StaffID, req.Name, req.Role); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := auth.Issue(req.StaffID, req.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	_ = h.staff.SaveRefreshToken(c.Request.Context(), req.StaffID, tokens.RefreshToken, tokens.RefreshExp)

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken rotates a refresh token: the old one is revoked and a fresh
// pair is issued for the same staff member.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	active, err := h.staff.RefreshTokenActive(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token revoked or expired"})
		return
	}

	tokens, err := auth.Issue(claims.Subject, claims.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	_ = h.staff.RevokeRefreshToken(c.Request.Context(), req.RefreshToken)
	_ = h.staff.SaveRefreshToken(c.Request.Context(), claims.Subject, tokens.RefreshToken, tokens.RefreshExp)

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Attendance ----------

type markItem struct {
	StudentID int64  `json:"student_id" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=present absent late"`
}

type markRequest struct {
	ClassScheduleID int64      `json:"class_schedule_id" binding:"required"`
	Date            string     `json:"date" binding:"required,datetime=2006-01-02"`
	Attendance      []markItem `json:"attendance" binding:"required,min=1,dive"`
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, _ := time.Parse(dateLayout, req.Date)

	marks := make([]attendance.Mark, 0, len(req.Attendance))
	for _, item := range req.Attendance {
		marks = append(marks, attendance.Mark{StudentID: item.StudentID, Status: attendance.Status(item.Status)})
	}

	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)

	if err := h.att.MarkBatch(c.Request.Context(), req.ClassScheduleID, date, marks, claims.Subject); err != nil {
		if errors.Is(err, attendance.ErrScheduleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Class schedule not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Attendance marked successfully"})
}

func (h *Handler) GetClassAttendance(c *gin.Context) {
	classScheduleID, err := strconv.ParseInt(c.Query("class_schedule_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "class_schedule_id required"})
		return
	}
	date, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required (YYYY-MM-DD)"})
		return
	}

	records, summary, err := h.att.ClassAttendance(c.Request.Context(), classScheduleID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, rec := range records {
		out = append(out, recordJSON(rec))
	}
	c.JSON(http.StatusOK, gin.H{"attendance": out, "summary": summary})
}

// ---------- Class schedules ----------

type schedulePayload struct {
	SubjectID      int64  `json:"subject_id" binding:"required"`
	TeacherID      *int64 `json:"teacher_id"`
	GuestTeacherID *int64 `json:"guest_teacher_id"`
	RoomNumber     string `json:"room_number"`
	ScheduleDay    string `json:"schedule_day" binding:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime      string `json:"start_time" binding:"required,datetime=15:04"`
	EndTime        string `json:"end_time" binding:"required,datetime=15:04"`
	ClassType      string `json:"class_type" binding:"omitempty,oneof=theory practical lab tutorial seminar"`
	Semester       int    `json:"semester" binding:"required,min=1,max=8"`
	AcademicYear   string `json:"academic_year" binding:"required"`
	IsActive       *bool  `json:"is_active"`
}

// toSchedule folds the two nullable FK fields into the Instructor sum type.
// The XOR is enforced here, before any conflict logic runs.
func (p schedulePayload) toSchedule() (schedule.ClassSchedule, string) {
	if p.TeacherID != nil && p.GuestTeacherID != nil {
		return schedule.ClassSchedule{}, "Class schedule cannot have both a teacher and a guest teacher at the same time"
	}
	if p.TeacherID == nil && p.GuestTeacherID == nil {
		return schedule.ClassSchedule{}, "Either a teacher or guest teacher must be assigned to the class schedule"
	}
	instr := schedule.Instructor{Kind: schedule.KindTeacher}
	if p.TeacherID != nil {
		instr.ID = *p.TeacherID
	} else {
		instr = schedule.Instructor{Kind: schedule.KindGuest, ID: *p.GuestTeacherID}
	}
	classType := p.ClassType
	if classType == "" {
		classType = "theory"
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return schedule.ClassSchedule{
		SubjectID:    p.SubjectID,
		Instructor:   instr,
		RoomNumber:   p.RoomNumber,
		ScheduleDay:  p.ScheduleDay,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		ClassType:    classType,
		Semester:     p.Semester,
		AcademicYear: p.AcademicYear,
		IsActive:     active,
	}, ""
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	var req schedulePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cs, msg := req.toSchedule()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	created, msg, err := h.schedules.Create(c.Request.Context(), cs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "class": scheduleJSON(*created)})
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req schedulePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cs, msg := req.toSchedule()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	updated, msg, err := h.schedules.Update(c.Request.Context(), id, cs)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Class schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "class": scheduleJSON(*updated)})
}

func (h *Handler) ListSchedules(c *gin.Context) {
	f := schedule.ListFilter{
		ScheduleDay:  c.Query("day"),
		AcademicYear: c.Query("academic_year"),
		ActiveOnly:   c.Query("active") == "true",
		Limit:        intQuery(c, "limit", 50),
		Offset:       intQuery(c, "offset", 0),
	}
	if v := c.Query("semester"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Semester = parsed
		}
	}
	schedules, err := h.schedules.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(schedules))
	for _, cs := range schedules {
		out = append(out, scheduleJSON(cs))
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out, "total": len(out)})
}

// ---------- Rewards / fines ----------

func (h *Handler) ListRewardsFines(c *gin.Context) {
	f := rewardfine.ListFilter{
		Type:   rewardfine.EntryType(c.Query("type")),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if v := c.Query("student_id"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.StudentID = parsed
		}
	}
	if v := c.Query("month"); v != "" {
		month, err := parseMonth(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM or YYYY-MM-DD"})
			return
		}
		f.Month = month
	}

	entries, err := h.rewards.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON(e))
	}
	c.JSON(http.StatusOK, gin.H{"rewards_and_fines": out, "total": len(out)})
}

type recomputeRequest struct {
	Date string `json:"date" binding:"required,datetime=2006-01-02"`
}

// EnqueueRecompute dispatches a full all-students sweep to the worker.
func (h *Handler) EnqueueRecompute(c *gin.Context) {
	var req recomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := queue.NewRecomputeMessage(queue.RecomputeJob{Date: req.Date})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.q.Publish(c.Request.Context(), msg); err != nil {
		h.log.Error("recompute enqueue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Recompute scheduled"})
}

// ---------- helpers ----------

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseMonth(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01", v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, err
	}
	return rewardfine.MonthOf(t), nil
}

func recordJSON(rec attendance.Record) gin.H {
	return gin.H{
		"id":                rec.ID,
		"class_schedule_id": rec.ClassScheduleID,
		"student_id":        rec.StudentID,
		"date":              rec.Date.Format(dateLayout),
		"status":            rec.Status,
		"marked_by":         rec.MarkedBy,
		"marked_at":         rec.MarkedAt,
	}
}

func scheduleJSON(cs schedule.ClassSchedule) gin.H {
	out := gin.H{
		"id":            cs.ID,
		"subject_id":    cs.SubjectID,
		"room_number":   cs.RoomNumber,
		"schedule_day":  cs.ScheduleDay,
		"start_time":    cs.StartTime,
		"end_time":      cs.EndTime,
		"class_type":    cs.ClassType,
		"semester":      cs.Semester,
		"academic_year": cs.AcademicYear,
		"is_active":     cs.IsActive,
	}
	if cs.Instructor.Kind == schedule.KindTeacher {
		out["teacher_id"] = cs.Instructor.ID
	} else if cs.Instructor.Kind == schedule.KindGuest {
		out["guest_teacher_id"] = cs.Instructor.ID
	}
	return out
}

func entryJSON(e rewardfine.Entry) gin.H {
	return gin.H{
		"id":                    e.ID,
		"student_id":            e.StudentID,
		"type":                  e.Type,
		"amount":                e.Amount,
		"reason":                e.Reason,
		"month":                 e.Month.Format(dateLayout),
		"attendance_percentage": e.AttendancePercentage,
		"created_at":            e.CreatedAt,
	}
}
