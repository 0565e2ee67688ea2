package http_api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/creatorpay/creatorpay/internal/models"
)

const (
	// PaymentProofHeader carries the transaction hash of the payment.
	PaymentProofHeader = "X-Payment-Proof"
	// PaymentChallengeHeader carries the challenge id the proof settles.
	PaymentChallengeHeader = "X-Payment-Challenge"
)

// OnboardRequest represents the JSON body for creator onboarding
type OnboardRequest struct {
	Username      string `json:"username" binding:"required,min=3,max=64"`
	Email         string `json:"email" binding:"omitempty,email"`
	WalletAddress string `json:"wallet_address" binding:"required"`
	ContentTypes  string `json:"content_types"`
	Platforms     string `json:"platforms"`
	Bio           string `json:"bio"`
	Website       string `json:"website"`
	Telegram      string `json:"telegram"` // Telegram chat id for settlement notifications
}

// UploadContentRequest represents the JSON body for content upload
type UploadContentRequest struct {
	CreatorID   string `json:"creator_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Body        string `json:"body" binding:"required"`
	ContentType string `json:"content_type" binding:"omitempty,oneof=article newsletter research code"`
	PriceUSD    string `json:"price_usd" binding:"required"`
	Tags        string `json:"tags"`
	Excerpt     string `json:"excerpt"`
}

// SetPricingRequest represents the JSON body for a price update
type SetPricingRequest struct {
	CreatorID string `json:"creator_id" binding:"required"`
	PriceUSD  string `json:"price_usd" binding:"required"`
}

// health is a handler for the /health endpoint.
func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "CreatorPay API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// onboardCreator is a handler for POST /api/v1/creators.
func (s *HTTPServer) onboardCreator(c *gin.Context) {
	var req OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	created, err := s.creators.Onboard(&models.Creator{
		Username:       req.Username,
		Email:          req.Email,
		WalletAddress:  req.WalletAddress,
		ContentTypes:   req.ContentTypes,
		Platforms:      req.Platforms,
		Bio:            req.Bio,
		Website:        req.Website,
		TelegramChatID: req.Telegram,
	})
	if err != nil {
		s.logger.Debug("Creator onboarding failed", "error", err, "username", req.Username)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	s.logger.Info("Creator onboarded successfully", "username", created.Username)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Creator onboarded successfully",
		"data":    created,
	})
}

// getCreator is a handler for GET /api/v1/creators/:username.
func (s *HTTPServer) getCreator(c *gin.Context) {
	username := c.Param("username")
	profile, err := s.creators.GetByUsername(username)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Creator not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get creator"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": profile})
}

// getAnalytics is a handler for GET /api/v1/creators/:username/analytics.
func (s *HTTPServer) getAnalytics(c *gin.Context) {
	username := c.Param("username")
	profile, err := s.creators.GetByUsername(username)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Creator not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get creator"})
		}
		return
	}

	analytics, err := s.creators.Analytics(profile.ID)
	if err != nil {
		s.logger.Error("Failed to get analytics", "error", err, "creator", profile.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get analytics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": analytics})
}

// uploadContent is a handler for POST /api/v1/content.
func (s *HTTPServer) uploadContent(c *gin.Context) {
	var req UploadContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	content, err := s.creators.Upload(&models.Content{
		CreatorID:   req.CreatorID,
		Title:       req.Title,
		Body:        req.Body,
		ContentType: req.ContentType,
		PriceUSD:    req.PriceUSD,
		Tags:        req.Tags,
		Excerpt:     req.Excerpt,
	})
	if err != nil {
		s.logger.Debug("Content upload failed", "error", err, "creator", req.CreatorID)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Content uploaded successfully",
		"data":    contentSummary(content),
	})
}

// setPricing is a handler for PUT /api/v1/content/:id/price.
func (s *HTTPServer) setPricing(c *gin.Context) {
	var req SetPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	contentID := c.Param("id")
	if err := s.creators.SetPricing(contentID, req.CreatorID, req.PriceUSD); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Content not found or unauthorized"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Price updated to $" + req.PriceUSD + " USD",
	})
}

// searchContent is a handler for GET /api/v1/content.
func (s *HTTPServer) searchContent(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	filter := models.ContentFilter{
		Query:       c.Query("q"),
		ContentType: c.Query("type"),
		MaxPriceUSD: c.Query("max_price"),
		Limit:       limit,
	}
	if username := c.Query("creator"); username != "" {
		profile, err := s.creators.GetByUsername(username)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Creator not found"})
			return
		}
		filter.CreatorID = profile.ID
	}

	results, err := s.creators.Search(filter)
	if err != nil {
		s.logger.Error("Content search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Search failed"})
		return
	}

	summaries := make([]gin.H, 0, len(results))
	for _, content := range results {
		summaries = append(summaries, contentSummary(content))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"content": summaries, "count": len(summaries)},
	})
}

// getContent is the payment gate: GET /api/v1/content/:id.
// Without proof it answers 402 with a payment challenge; with a valid proof
// it settles the payment and returns the gated body.
func (s *HTTPServer) getContent(c *gin.Context) {
	contentID := c.Param("id")

	content, err := s.creators.GetContent(contentID)
	if err != nil || !content.Active {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Content not found"})
		return
	}
	owner, err := s.creators.Get(content.CreatorID)
	if err != nil {
		s.logger.Error("Content has no creator", "content", contentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve creator"})
		return
	}

	proof := c.GetHeader(PaymentProofHeader)
	challengeID := c.GetHeader(PaymentChallengeHeader)

	grant, challenge, err := s.gate.RequestAccess(c.Request.Context(), content, owner, challengeID, proof)
	if err != nil {
		s.respondGateError(c, err, challenge)
		return
	}

	if challenge != nil {
		s.respondPaymentRequired(c, challenge, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":           content.ID,
			"title":        content.Title,
			"content":      content.Body,
			"content_type": content.ContentType,
			"creator":      owner.Username,
			"price_usd":    content.PriceUSD,
			"payment": gin.H{
				"verified":       true,
				"transaction_id": grant.TransactionID,
				"creator_amount": grant.CreatorAmount,
				"platform_fee":   grant.PlatformFee,
				"settled_at":     grant.SettledAt,
			},
		},
	})
}

// stats is a handler for GET /api/v1/stats.
func (s *HTTPServer) stats(c *gin.Context) {
	stats, err := s.creators.Stats()
	if err != nil {
		s.logger.Error("Failed to get platform stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// respondPaymentRequired writes a 402 response with the x402-style headers
// and the machine-readable challenge payload.
func (s *HTTPServer) respondPaymentRequired(c *gin.Context, challenge *models.PaymentRequired, errorCode string) {
	c.Header("X-Payment-Required", "x402-token-transfer")
	c.Header("X-Payment-Amount", challenge.AmountAtomic)
	c.Header("X-Payment-Recipient", challenge.RecipientAddress)
	c.Header("X-Payment-Token", challenge.TokenContract)
	c.Header("X-Payment-Chain", strconv.FormatInt(challenge.ChainID, 10))

	body := gin.H{
		"success": false,
		"error":   "Payment Required",
		"payment": challenge,
	}
	if errorCode != "" {
		body["code"] = errorCode
	}
	c.JSON(http.StatusPaymentRequired, body)
}

// respondGateError maps the gate error taxonomy onto protocol responses.
// Retryable failures re-deliver the open challenge so the caller can poll
// with the same proof; transaction reuse is reported as forbidden.
func (s *HTTPServer) respondGateError(c *gin.Context, err error, challenge *models.PaymentRequired) {
	code := models.CodeOf(err)
	s.logger.Debug("Payment gate refusal", "code", code, "error", err)

	if challenge != nil && models.IsRetryable(err) {
		s.respondPaymentRequired(c, challenge, string(code))
		return
	}

	switch code {
	case models.CodeTransactionReuse:
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Payment verification failed: " + err.Error(),
			"code":    code,
		})
	case "":
		s.logger.Error("Payment gate failure", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
	default:
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success": false,
			"error":   "Payment verification failed: " + err.Error(),
			"code":    code,
		})
	}
}

func contentSummary(content *models.Content) gin.H {
	return gin.H{
		"id":           content.ID,
		"creator_id":   content.CreatorID,
		"title":        content.Title,
		"content_type": content.ContentType,
		"price_usd":    content.PriceUSD,
		"tags":         content.Tags,
		"excerpt":      content.Excerpt,
		"created_at":   content.CreatedAt,
	}
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "record not found")
}
