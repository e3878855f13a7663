package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lead-orchestrator/internal/leads"
	"lead-orchestrator/internal/models"
)

const defaultSearchLimit = 20

// ==========================
// Lead records
// ==========================

func (s *Server) listLeads(c *gin.Context) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return
	}
	limit, err := queryInt(c, "limit", 100, 1, 1000)
	if err != nil {
		s.fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0, 0, 1<<30)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.deps.Leads.ListLeads(c.Request.Context(), limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createLead(c *gin.Context) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return
	}
	var in models.LeadCreate
	if err := bind(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	lead, err := s.deps.Leads.CreateLead(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (s *Server) getLead(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	lead, err := s.deps.Leads.GetLead(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (s *Server) updateLead(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	var in models.LeadUpdate
	if err := bind(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	lead, err := s.deps.Leads.UpdateLead(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (s *Server) addInteraction(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	var in models.InteractionCreate
	if err := bind(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	in.LeadID = id
	it, err := s.deps.Leads.AddInteraction(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// leadID parses the :id parameter and checks the lead service is wired. It
// writes the error response itself when it returns false.
func (s *Server) leadID(c *gin.Context) (int64, bool) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return 0, false
	}
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return 0, false
	}
	return id, true
}

// ==========================
// AI operations
// ==========================

type qualifyBody struct {
	models.QualificationRequest
	Context *models.QualificationContext `json:"context,omitempty"`
}

func (s *Server) qualifyAdhoc(c *gin.Context) {
	if s.deps.Qualifier == nil {
		s.fail(c, notConfigured("lead qualification"))
		return
	}
	var body qualifyBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.deps.Qualifier.QualifyLead(c.Request.Context(), &body.QualificationRequest, body.Context)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type personalizeBody struct {
	models.PersonalizationRequest
	Context *models.PersonalizationContext `json:"context,omitempty"`
}

func (s *Server) personalizeAdhoc(c *gin.Context) {
	if s.deps.Personalizer == nil {
		s.fail(c, notConfigured("message personalization"))
		return
	}
	var body personalizeBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.deps.Personalizer.PersonalizeMessage(c.Request.Context(), &body.PersonalizationRequest, body.Context)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) qualifyExisting(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	out, err := s.deps.Leads.QualifyExisting(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, "Lead qualified successfully", out)
}

func (s *Server) rescore(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	out, err := s.deps.Leads.Rescore(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, "Lead re-scored with custom criteria", out)
}

func (s *Server) personalizeForLead(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	send, _ := strconv.ParseBool(c.DefaultQuery("send", "false"))
	out, err := s.deps.Leads.PersonalizeForLead(c.Request.Context(), id, leads.PersonalizeOptions{
		CampaignType: c.DefaultQuery("campaign_type", leads.DefaultCampaignType),
		MessageTone:  c.DefaultQuery("message_tone", leads.DefaultMessageTone),
		Send:         send,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, "Messages personalized successfully", out)
}

func (s *Server) coordinateMeeting(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	out, err := s.deps.Leads.CoordinateMeeting(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, "Meeting times suggested successfully", out)
}

// ==========================
// Scoring criteria and pipeline
// ==========================

func (s *Server) listCriteria(c *gin.Context) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return
	}
	out, err := s.deps.Leads.ActiveCriteria(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createCriterion(c *gin.Context) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return
	}
	var in models.ScoringCriteriaCreate
	if err := bind(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.deps.Leads.CreateCriterion(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateCriterion(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	var in models.ScoringCriteriaUpdate
	if err := bind(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.deps.Leads.UpdateCriterion(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listStages(c *gin.Context) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return
	}
	out, err := s.deps.Leads.Stages(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type moveResponse struct {
	LeadID         int64  `json:"lead_id"`
	StageID        int64  `json:"stage_id"`
	HistoryEntryID int64  `json:"history_entry_id"`
	EnteredAt      string `json:"entered_at"`
}

func (s *Server) moveToStage(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	stageID, err := parseID(c.Query("stage_id"), "stage_id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var notes *string
	if n, present := c.GetQuery("notes"); present {
		notes = &n
	}
	entry, err := s.deps.Leads.MoveToStage(c.Request.Context(), id, stageID, notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, "Lead moved to new stage successfully", moveResponse{
		LeadID:         id,
		StageID:        stageID,
		HistoryEntryID: entry.ID,
		EnteredAt:      entry.EnteredAt.Format("2006-01-02T15:04:05"),
	})
}

func (s *Server) leadPipeline(c *gin.Context) {
	id, ok := s.leadID(c)
	if !ok {
		return
	}
	out, err := s.deps.Leads.LeadPipeline(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ==========================
// Search
// ==========================

func (s *Server) searchLeads(c *gin.Context) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return
	}
	req := models.SearchRequest{Limit: defaultSearchLimit}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.deps.Leads.SearchLeads(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, "", gin.H{
		"leads":   out,
		"query":   req.Query,
		"filters": req.Filters,
		"count":   len(out),
		"limit":   req.Limit,
		"offset":  req.Offset,
	})
}

func (s *Server) searchInteractions(c *gin.Context) {
	if s.deps.Leads == nil {
		s.fail(c, notConfigured("lead storage"))
		return
	}
	req := models.SearchRequest{Limit: defaultSearchLimit}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.deps.Leads.SearchInteractions(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, "", gin.H{
		"interactions": out,
		"query":        req.Query,
		"count":        len(out),
		"limit":        req.Limit,
		"offset":       req.Offset,
	})
}
