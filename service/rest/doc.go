// Package rest exposes the process lifecycle manager over HTTP using gin.
// Lifecycle errors map onto status codes: unknown processes are 404,
// validation errors 400 and admission rejections 409.
package rest
