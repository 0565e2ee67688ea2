package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/health", s.health)

	s.router.POST("/api/v1/creators", s.onboardCreator)
	s.router.GET("/api/v1/creators/:username", s.getCreator)
	s.router.GET("/api/v1/creators/:username/analytics", s.getAnalytics)

	s.router.POST("/api/v1/content", s.uploadContent)
	s.router.PUT("/api/v1/content/:id/price", s.setPricing)
	s.router.GET("/api/v1/content", s.searchContent)
	s.router.GET("/api/v1/content/:id", s.getContent)

	s.router.GET("/api/v1/stats", s.stats)
}
