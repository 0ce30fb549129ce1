package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"nl2sql_cache/schema"
	"nl2sql_cache/semcache"
)

// QueryRequest asks a natural-language question against one or more tables.
type QueryRequest struct {
	Question string   `json:"question" binding:"required"`
	Tables   []string `json:"tables" binding:"required,min=1"`
}

// CreateTableRequest registers a table schema.
type CreateTableRequest struct {
	TableName string          `json:"table_name" binding:"required"`
	Columns   []schema.Column `json:"columns" binding:"required,min=1"`
}

// AlterTableRequest replaces an existing table's columns.
type AlterTableRequest struct {
	Columns []schema.Column `json:"columns" binding:"required,min=1"`
}

func newRouter(qc *semcache.Cache, registry *schema.Registry, log *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/query", handleQuery(qc, log))
	api.POST("/tables", handleCreateTable(qc, registry, log))
	api.PUT("/tables/:name", handleAlterTable(qc, registry, log))
	api.DELETE("/tables/:name", handleDropTable(qc, registry, log))
	api.GET("/tables/:name/schema", handleGetSchema(registry))
	api.GET("/stats", handleStats(qc))
	return r
}

func handleQuery(qc *semcache.Cache, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse query request"})
			return
		}

		result, err := qc.Resolve(c.Request.Context(), req.Question, req.Tables)
		if errors.Is(err, schema.ErrUnknownTable) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			log.Error("resolve failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve question"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func handleCreateTable(qc *semcache.Cache, registry *schema.Registry, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTableRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse create table request"})
			return
		}

		// A reused name must not serve answers cached against the old table.
		reused := registry.Exists(req.TableName)
		if err := registry.Create(req.TableName, req.Columns); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if reused {
			if err := qc.Invalidate(c.Request.Context(), req.TableName); err != nil {
				log.Error("invalidation failed", "table", req.TableName, "error", err)
			}
		}
		c.JSON(http.StatusCreated, gin.H{"table_name": req.TableName})
	}
}

func handleAlterTable(qc *semcache.Cache, registry *schema.Registry, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		var req AlterTableRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse alter table request"})
			return
		}

		if err := registry.Alter(name, req.Columns); err != nil {
			if errors.Is(err, schema.ErrUnknownTable) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := qc.Invalidate(c.Request.Context(), name); err != nil {
			log.Error("invalidation failed", "table", name, "error", err)
		}
		c.JSON(http.StatusOK, gin.H{"table_name": name})
	}
}

func handleDropTable(qc *semcache.Cache, registry *schema.Registry, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		registry.Drop(name)
		if err := qc.Invalidate(c.Request.Context(), name); err != nil {
			log.Error("invalidation failed", "table", name, "error", err)
		}
		c.Status(http.StatusNoContent)
	}
}

func handleGetSchema(registry *schema.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		tables, err := registry.Tables(name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tables[0])
	}
}

func handleStats(qc *semcache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, qc.Stats(c.Request.Context()))
	}
}
