// Package docs provides generated OpenAPI documentation.
//
// Lectern API
//
//	@title			Lectern API
//	@version		1.0
//	@description	Question answering over PDF textbooks with page-level citations.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/lectern
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8585
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/lectern/serve.go -o ./swagger --parseDependency --parseInternal
