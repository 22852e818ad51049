package api

// @title Inventory API
// @version v1.0.0
// @description REST API of the home inventory: items, storage locations, categories, tags and attachments.

// @host localhost:9000
// @BasePath /api
// @schemes http
// @query.collection.format multi

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer " followed by base64(username:password), as returned by /auth/login.
