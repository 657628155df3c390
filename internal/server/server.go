// Package server exposes the extracted leads and the review queue as a
// small JSON API.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/repository"
)

type Server struct {
	echo        *echo.Echo
	leads       repository.LeadRepository
	attachments repository.AttachmentRepository
	logger      *zap.Logger
}

func New(leads repository.LeadRepository, attachments repository.AttachmentRepository, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:        e,
		leads:       leads,
		attachments: attachments,
		logger:      logger,
	}

	api := e.Group("/api")
	api.GET("/leads", s.listLeads)
	api.GET("/leads/pending", s.listPending)
	api.GET("/leads/:id", s.getLead)
	api.POST("/leads/:id/approve", s.approveLead)
	api.POST("/leads/:id/skip", s.skipLead)

	return s
}

func (s *Server) Start(port string) error {
	return s.echo.Start(":" + port)
}

func (s *Server) listLeads(c echo.Context) error {
	agent := c.QueryParam("agent")

	var leads []*model.Lead
	var err error
	if agent != "" {
		leads, err = s.leads.FindByAgent(c.Request().Context(), agent)
	} else {
		leads, err = s.leads.FindAll(c.Request().Context())
	}
	if err != nil {
		s.logger.Error("failed to list leads", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list leads")
	}
	return c.JSON(http.StatusOK, leads)
}

func (s *Server) listPending(c echo.Context) error {
	leads, err := s.leads.FindByStatus(c.Request().Context(), model.StatusPendingReview)
	if err != nil {
		s.logger.Error("failed to list pending leads", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list pending leads")
	}
	return c.JSON(http.StatusOK, leads)
}

func (s *Server) getLead(c echo.Context) error {
	lead, err := s.leads.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("failed to load lead", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load lead")
	}
	if lead == nil {
		return echo.NewHTTPError(http.StatusNotFound, "lead not found")
	}

	attachments, err := s.attachments.FindByLeadID(c.Request().Context(), lead.ID)
	if err == nil {
		lead.Attachments = attachments
	}
	return c.JSON(http.StatusOK, lead)
}

// approveLead moves a queued lead to ready_to_contact. The operator's
// update-or-skip choice for flagged duplicates lands here too.
func (s *Server) approveLead(c echo.Context) error {
	return s.updateStatus(c, model.StatusReadyToContact)
}

func (s *Server) skipLead(c echo.Context) error {
	return s.updateStatus(c, model.StatusSkipped)
}

func (s *Server) updateStatus(c echo.Context, status string) error {
	id := c.Param("id")
	if err := s.leads.UpdateStatus(c.Request().Context(), id, status); err != nil {
		s.logger.Error("failed to update lead status",
			zap.String("id", id),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusNotFound, "lead not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id, "status": status})
}
