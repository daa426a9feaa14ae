package controller

import (
	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/pkg/serverutils"
	"rma-engine-be/internal/service"
	"rma-engine-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRMAController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ShowByNumber(ctx *fiber.Ctx) error
	Approve(ctx *fiber.Ctx) error
	Reject(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	RetryLabel(ctx *fiber.Ctx) error
	StartInspection(ctx *fiber.Ctx) error
	RecordInspection(ctx *fiber.Ctx) error
	ProcessResolution(ctx *fiber.Ctx) error
	Analytics(ctx *fiber.Ctx) error
	GetPolicy(ctx *fiber.Ctx) error
	UpdatePolicy(ctx *fiber.Ctx) error
}

type rmaController struct {
	service service.IRMAService
	auth    fiber.Handler
}

func NewRMAController(service service.IRMAService, auth fiber.Handler) IRMAController {
	return &rmaController{service: service, auth: auth}
}

func (c *rmaController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rma")
	h.Use(c.auth)

	// Fixed paths first so they are not taken as an :id.
	h.Get("/analytics", c.Analytics)
	h.Get("/policy", c.GetPolicy)
	h.Put("/policy", c.UpdatePolicy)
	h.Get("/number/:number", c.ShowByNumber)

	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Get("/:id", c.Show)
	h.Post("/:id/approve", c.Approve)
	h.Post("/:id/reject", c.Reject)
	h.Post("/:id/status", c.UpdateStatus)
	h.Post("/:id/cancel", c.Cancel)
	h.Post("/:id/label", c.RetryLabel)
	h.Post("/:id/inspection/start", c.StartInspection)
	h.Post("/:id/inspection", c.RecordInspection)
	h.Post("/:id/resolution", c.ProcessResolution)
}

func paramID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.InvalidInput("id", "must be a UUID")
	}
	return id, nil
}

// parseBody decodes and validates the JSON body into req.
func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.InvalidInput("body", err.Error())
	}
	return serverutils.ValidateRequest(req)
}

func (c *rmaController) Create(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)

	var req dto.CreateRMARequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	req.CompanyID = p.CompanyID
	req.ActorType = p.ActorType()
	req.ActorID = p.ActorID()

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("RMA created", res))
}

func (c *rmaController) GetAll(ctx *fiber.Ctx) error {
	var req dto.ListRMAsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return apperror.InvalidInput("query", err.Error())
	}

	res, err := c.service.List(ctx.UserContext(), serverutils.GetPrincipal(ctx).CompanyID, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list RMAs", res))
}

func (c *rmaController) Show(ctx *fiber.Ctx) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Show(ctx.UserContext(), serverutils.GetPrincipal(ctx).CompanyID, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show RMA", res))
}

func (c *rmaController) ShowByNumber(ctx *fiber.Ctx) error {
	res, err := c.service.ShowByNumber(ctx.UserContext(), serverutils.GetPrincipal(ctx).CompanyID, ctx.Params("number"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show RMA", res))
}

func (c *rmaController) Approve(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.ApproveRMARequest
	if len(ctx.Body()) > 0 {
		if err := parseBody(ctx, &req); err != nil {
			return err
		}
	}
	req.ActorID = p.ActorID()

	res, err := c.service.Approve(ctx.UserContext(), p.CompanyID, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("RMA approved", res))
}

func (c *rmaController) Reject(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.RejectRMARequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	req.ActorID = p.ActorID()

	res, err := c.service.Reject(ctx.UserContext(), p.CompanyID, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("RMA rejected", res))
}

func (c *rmaController) UpdateStatus(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateRMAStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	req.ActorType = p.ActorType()
	req.ActorID = p.ActorID()

	res, err := c.service.UpdateStatus(ctx.UserContext(), p.CompanyID, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("RMA status updated", res))
}

func (c *rmaController) Cancel(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.CancelRMARequest
	if len(ctx.Body()) > 0 {
		if err := parseBody(ctx, &req); err != nil {
			return err
		}
	}
	req.ActorType = p.ActorType()
	req.ActorID = p.ActorID()

	res, err := c.service.Cancel(ctx.UserContext(), p.CompanyID, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("RMA cancelled", res))
}

func (c *rmaController) RetryLabel(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.RetryLabel(ctx.UserContext(), p.CompanyID, id, p.ActorID())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Shipping label issued", res))
}

func (c *rmaController) StartInspection(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.StartInspection(ctx.UserContext(), p.CompanyID, id, p.ActorID())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Inspection started", res))
}

func (c *rmaController) RecordInspection(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.RecordInspectionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if req.InspectedBy == "" {
		req.InspectedBy = p.ActorID()
	}

	res, err := c.service.RecordInspection(ctx.UserContext(), p.CompanyID, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Inspection recorded", res))
}

func (c *rmaController) ProcessResolution(ctx *fiber.Ctx) error {
	p := serverutils.GetPrincipal(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req dto.ResolutionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	req.ActorID = p.ActorID()

	res, err := c.service.ProcessResolution(ctx.UserContext(), p.CompanyID, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Resolution processed", res))
}

func (c *rmaController) Analytics(ctx *fiber.Ctx) error {
	var req dto.AnalyticsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return apperror.InvalidInput("query", err.Error())
	}

	res, err := c.service.GetAnalytics(ctx.UserContext(), serverutils.GetPrincipal(ctx).CompanyID, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get RMA analytics", res))
}

func (c *rmaController) GetPolicy(ctx *fiber.Ctx) error {
	res, err := c.service.GetPolicy(ctx.UserContext(), serverutils.GetPrincipal(ctx).CompanyID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get RMA policy", res))
}

func (c *rmaController) UpdatePolicy(ctx *fiber.Ctx) error {
	var req dto.PolicyRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.UpdatePolicy(ctx.UserContext(), serverutils.GetPrincipal(ctx).CompanyID, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("RMA policy saved", res))
}
