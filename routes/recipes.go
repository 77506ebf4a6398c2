package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chefshelf/models"
	"chefshelf/services"
	"chefshelf/utils"

	"github.com/gin-gonic/gin"
)

// RecipeGateway is the storage used by the HTTP API.
type RecipeGateway interface {
	Save(ctx context.Context, recipes []models.Recipe) (*services.SaveResult, error)
	Search(ctx context.Context, query string) ([]models.Recipe, error)
}

func SetupRecipeRoutes(router *gin.Engine, store RecipeGateway) {
	api := router.Group("/api/recipes")
	{
		api.GET("", searchRecipes(store))
		api.POST("", saveRecipes(store))
		api.GET("/export", exportRecipes(store))
	}
}

func searchRecipes(store RecipeGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithStoreTimeout(c.Request.Context())
		defer cancel()

		recipes, err := store.Search(ctx, c.Query("q"))
		if err != nil {
			utils.RespondWithImportError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"recipes": recipes,
			"count":   len(recipes),
		})
	}
}

func saveRecipes(store RecipeGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var recipes []models.Recipe
		if err := c.ShouldBindJSON(&recipes); err != nil {
			utils.RespondWithBadRequest(c, "", "Body must be a JSON array of recipes", err.Error())
			return
		}

		ctx, cancel := utils.WithStoreTimeout(c.Request.Context())
		defer cancel()

		result, err := store.Save(ctx, recipes)
		if err != nil {
			utils.RespondWithImportError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func exportRecipes(store RecipeGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithStoreTimeout(c.Request.Context())
		defer cancel()

		recipes, err := store.Search(ctx, c.Query("q"))
		if err != nil {
			utils.RespondWithImportError(c, err)
			return
		}

		data, err := services.ExportWorkbook(recipes)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build workbook", err.Error())
			return
		}

		filename := fmt.Sprintf("receitas-%s.xlsx", time.Now().Format("20060102-150405"))
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Data(http.StatusOK, services.XLSXContentType, data)
	}
}
