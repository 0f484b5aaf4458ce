package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/service"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

// usersPageSize covers the whole user table on one page.
const usersPageSize = 100

// ============================================================
// Dashboard
// ============================================================

func adminDashboardHandler(svc *service.DashboardService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "admin_dashboard", layout(r, "Admin Dashboard", "admin_dashboard"))
		dash, err := svc.Admin(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(dash)
	}
}

// ============================================================
// Users
// ============================================================

func usersHandler(svc *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "users", layout(r, "Users", "users"))
		users, err := svc.Users(r.Context(), domain.PageQuery{Page: 0, Size: usersPageSize})
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(users)
	}
}

func userForm(title, action string, withPassword bool) view.Form {
	fields := []view.Field{
		{Name: "name", Label: "Name", Type: view.Text, Required: true},
		{Name: "email", Label: "Email", Type: view.Email, Required: true},
	}
	if withPassword {
		fields = append(fields, view.Field{
			Name: "password", Label: "Password", Type: view.Password, Required: true,
			Help: fmt.Sprintf("At least %d characters.", service.MinPasswordLength),
		})
	}
	fields = append(fields, view.Field{Name: "role", Label: "Role", Type: view.Select, Options: view.RoleOptions(), Required: true})
	return view.Form{Title: title, Action: action, Submit: "Save", Cancel: "/admin/users", Fields: fields}
}

func newUserHandler(views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := userForm("New user", "/admin/users", true)
		form.Values = url.Values{"role": {string(domain.RoleAgent)}}
		views.Render(w, http.StatusOK, "form", layout(r, "New user", "users"), form)
	}
}

func createUserHandler(svc *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		_, err := svc.CreateUser(r.Context(), &domain.CreateUserRequest{
			Name:     r.PostFormValue("name"),
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Role:     domain.Role(r.PostFormValue("role")),
		})
		if err != nil {
			renderFormError(w, r, views, layout(r, "New user", "users"), userForm("New user", "/admin/users", true), err, logger)
			return
		}
		redirect(w, r, "/admin/users")
	}
}

func editUserHandler(svc *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		page := views.Begin(w, "form", layout(r, "Edit user", "users"))
		u, err := svc.User(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		form := userForm("Edit "+u.Name, fmt.Sprintf("/admin/users/%d/edit", id), false)
		form.Values = url.Values{"name": {u.Name}, "email": {u.Email}, "role": {string(u.Role)}}
		page.Content(form)
	}
}

func updateUserHandler(svc *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		_, err = svc.UpdateUser(r.Context(), id, &domain.UpdateUserRequest{
			Name:  r.PostFormValue("name"),
			Email: r.PostFormValue("email"),
			Role:  domain.Role(r.PostFormValue("role")),
		})
		if err != nil {
			form := userForm("Edit user", fmt.Sprintf("/admin/users/%d/edit", id), false)
			renderFormError(w, r, views, layout(r, "Edit user", "users"), form, err, logger)
			return
		}
		redirect(w, r, "/admin/users")
	}
}

func passwordForm(id int64) view.Form {
	return view.Form{
		Title:  "Reset password",
		Action: fmt.Sprintf("/admin/users/%d/password", id),
		Submit: "Reset password",
		Cancel: "/admin/users",
		Fields: []view.Field{{
			Name: "newPassword", Label: "New password", Type: view.Password, Required: true,
			Help: fmt.Sprintf("At least %d characters.", service.MinPasswordLength),
		}},
	}
}

func passwordFormHandler(views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		views.Render(w, http.StatusOK, "form", layout(r, "Reset password", "users"), passwordForm(id))
	}
}

func resetPasswordHandler(svc *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if err := svc.ResetPassword(r.Context(), id, r.PostFormValue("newPassword")); err != nil {
			renderFormError(w, r, views, layout(r, "Reset password", "users"), passwordForm(id), err, logger)
			return
		}
		redirect(w, r, "/admin/users?notice="+url.QueryEscape("Password updated"))
	}
}

// ============================================================
// Products
// ============================================================

func adminProductsHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "admin_products", layout(r, "Products", "admin_products"))
		products, err := svc.Products(r.Context(), 0)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(products)
	}
}

func productForm(title, action string, categories []domain.Category) view.Form {
	options := make([]view.Option, 0, len(categories))
	for _, c := range categories {
		options = append(options, view.Option{Value: strconv.FormatInt(c.ID, 10), Label: c.Name})
	}
	return view.Form{
		Title:  title,
		Action: action,
		Submit: "Save",
		Cancel: "/admin/products",
		Fields: []view.Field{
			{Name: "name", Label: "Name", Type: view.Text, Required: true},
			{Name: "categoryId", Label: "Category", Type: view.Select, Options: options, Required: true},
			{Name: "insurer", Label: "Insurer", Type: view.Text},
			{Name: "planType", Label: "Plan type", Type: view.Text},
			{Name: "tags", Label: "Tags", Type: view.Text, Help: "Comma separated."},
			{Name: "details", Label: "Details (JSON)", Type: view.TextArea},
		},
	}
}

// productRequest reads the product form. The details field must be a JSON
// object when present.
func productRequest(r *http.Request) (*domain.ProductRequest, error) {
	req := &domain.ProductRequest{
		Name:       r.PostFormValue("name"),
		CategoryID: formInt64(r, "categoryId"),
		Insurer:    r.PostFormValue("insurer"),
		PlanType:   r.PostFormValue("planType"),
		Tags:       service.SplitTags(r.PostFormValue("tags")),
	}
	if raw := strings.TrimSpace(r.PostFormValue("details")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.DetailsJSON); err != nil {
			return nil, &domain.ErrValidation{Field: "details", Message: "Details must be a JSON object"}
		}
	}
	return req, nil
}

func newProductHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "form", layout(r, "New product", "admin_products"))
		categories, err := svc.Categories(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(productForm("New product", "/admin/products", categories))
	}
}

func createProductHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		req, err := productRequest(r)
		if err == nil {
			_, err = svc.CreateProduct(r.Context(), req)
		}
		if err != nil {
			categories, _ := svc.Categories(r.Context())
			form := productForm("New product", "/admin/products", categories)
			renderFormError(w, r, views, layout(r, "New product", "admin_products"), form, err, logger)
			return
		}
		redirect(w, r, "/admin/products")
	}
}

func editProductHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		page := views.Begin(w, "form", layout(r, "Edit product", "admin_products"))
		p, err := svc.Product(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}

		form := productForm("Edit "+p.Name, fmt.Sprintf("/admin/products/%d/edit", id), categories)
		form.Values = url.Values{
			"name":       {p.Name},
			"categoryId": {strconv.FormatInt(p.CategoryID, 10)},
			"insurer":    {p.Insurer},
			"planType":   {p.PlanType},
			"tags":       {strings.Join(p.Tags, ", ")},
		}
		if len(p.DetailsJSON) > 0 {
			if b, err := json.MarshalIndent(p.DetailsJSON, "", "  "); err == nil {
				form.Values.Set("details", string(b))
			}
		}
		page.Content(form)
	}
}

func updateProductHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		req, err := productRequest(r)
		if err == nil {
			_, err = svc.UpdateProduct(r.Context(), id, req)
		}
		if err != nil {
			categories, _ := svc.Categories(r.Context())
			form := productForm("Edit product", fmt.Sprintf("/admin/products/%d/edit", id), categories)
			renderFormError(w, r, views, layout(r, "Edit product", "admin_products"), form, err, logger)
			return
		}
		redirect(w, r, "/admin/products")
	}
}

// ============================================================
// Categories
// ============================================================

func categoriesHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "categories", layout(r, "Categories", "categories"))
		categories, err := svc.Categories(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(categories)
	}
}

func categoryForm(title, action string) view.Form {
	return view.Form{
		Title:  title,
		Action: action,
		Submit: "Save",
		Cancel: "/admin/categories",
		Fields: []view.Field{
			{Name: "name", Label: "Name", Type: view.Text, Required: true},
			{Name: "description", Label: "Description", Type: view.TextArea},
		},
	}
}

func newCategoryHandler(views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, http.StatusOK, "form", layout(r, "New category", "categories"), categoryForm("New category", "/admin/categories"))
	}
}

func createCategoryHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		_, err := svc.CreateCategory(r.Context(), &domain.CategoryRequest{
			Name:        r.PostFormValue("name"),
			Description: r.PostFormValue("description"),
		})
		if err != nil {
			form := categoryForm("New category", "/admin/categories")
			renderFormError(w, r, views, layout(r, "New category", "categories"), form, err, logger)
			return
		}
		redirect(w, r, "/admin/categories")
	}
}

func editCategoryHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		page := views.Begin(w, "form", layout(r, "Edit category", "categories"))
		c, err := svc.Category(r.Context(), id)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		form := categoryForm("Edit "+c.Name, fmt.Sprintf("/admin/categories/%d/edit", id))
		form.Values = url.Values{"name": {c.Name}, "description": {c.Description}}
		page.Content(form)
	}
}

func updateCategoryHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		_, err = svc.UpdateCategory(r.Context(), id, &domain.CategoryRequest{
			Name:        r.PostFormValue("name"),
			Description: r.PostFormValue("description"),
		})
		if err != nil {
			form := categoryForm("Edit category", fmt.Sprintf("/admin/categories/%d/edit", id))
			renderFormError(w, r, views, layout(r, "Edit category", "categories"), form, err, logger)
			return
		}
		redirect(w, r, "/admin/categories")
	}
}

// ============================================================
// Documents
// ============================================================

type documentsPage struct {
	Products  []domain.Product
	Selected  int64
	Documents []domain.ProductDocument
}

func documentsHandler(svc *service.CatalogService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "documents", layout(r, "Documents", "documents"))
		data := documentsPage{Selected: queryInt64(r, "productId")}

		var err error
		if data.Products, err = svc.Products(r.Context(), 0); err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		if data.Selected > 0 {
			if data.Documents, err = svc.Documents(r.Context(), data.Selected); err != nil {
				handlePageError(r, page, err, logger)
				return
			}
		}
		page.Content(data)
	}
}

func uploadDocumentHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		back := fmt.Sprintf("/admin/documents?productId=%d", id)

		file, err := formFile(w, r, "file")
		if err != nil {
			handleMutationError(w, r, back, err, logger)
			return
		}
		doc, err := svc.UploadDocument(r.Context(), id, file)
		if err != nil {
			handleMutationError(w, r, back, err, logger)
			return
		}
		redirect(w, r, back+"&notice="+url.QueryEscape("Uploaded "+doc.Filename))
	}
}

func downloadDocumentHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		dl, err := svc.DownloadDocument(r.Context(), id)
		if err != nil {
			handleMutationError(w, r, documentsOf(r, id), err, logger)
			return
		}

		disposition := dl.Disposition
		if disposition == "" {
			disposition = fmt.Sprintf("attachment; filename=document-%d", id)
		}
		writeDownload(w, dl, "application/octet-stream", disposition)
	}
}

// documentsOf sends the browser back to the document list it came from.
func documentsOf(r *http.Request, _ int64) string {
	if p := queryInt64(r, "productId"); p > 0 {
		return fmt.Sprintf("/admin/documents?productId=%d", p)
	}
	return "/admin/documents"
}

// ============================================================
// Lead import
// ============================================================

func importForm(agents []domain.User) view.Form {
	return view.Form{
		Title:     "Import leads",
		Action:    "/admin/leads/import",
		Submit:    "Import",
		Multipart: true,
		Fields: []view.Field{
			{Name: "file", Label: "CSV file", Type: view.File, Accept: ".csv", Required: true},
			{
				Name: "defaultAgentId", Label: "Assign to", Type: view.Select, Options: view.UserOptions(agents),
				Help: "Leads without an agent in the file go to this agent.",
			},
		},
	}
}

// agentsFor loads the agent picker. A failure only empties the picker.
func agentsFor(r *http.Request, admin *service.AdminService, logger *zap.Logger) ([]domain.User, error) {
	agents, err := admin.Agents(r.Context())
	if err != nil && !domain.IsUnauthorized(err) {
		logger.Warn("agent list unavailable", zap.Error(err))
		return nil, nil
	}
	return agents, err
}

func importLeadsFormHandler(admin *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.Begin(w, "form", layout(r, "Import leads", "import"))
		agents, err := agentsFor(r, admin, logger)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(importForm(agents))
	}
}

func importLeadsHandler(leads *service.LeadService, admin *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := formFile(w, r, "file")
		if err == nil {
			var res *domain.ImportLeadsResult
			res, err = leads.Import(r.Context(), file, optionalInt64(r.PostFormValue("defaultAgentId")))
			if err == nil {
				redirect(w, r, "/admin/leads/import?notice="+url.QueryEscape(fmt.Sprintf("Imported %d leads", res.Count)))
				return
			}
		}

		agents, _ := agentsFor(r, admin, logger)
		form := importForm(agents)
		form.Values = url.Values{"defaultAgentId": {r.PostFormValue("defaultAgentId")}}
		renderFormError(w, r, views, layout(r, "Import leads", "import"), form, err, logger)
	}
}

// ============================================================
// Settings & audit
// ============================================================

type configPage struct {
	Settings []domain.AdminSetting
	Error    string
}

func configHandler(svc *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := layout(r, "Model Config", "config")
		l.Flash = r.URL.Query().Get("notice")

		page := views.Begin(w, "config", l)
		settings, err := svc.Settings(r.Context())
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		page.Content(configPage{Settings: settings, Error: r.URL.Query().Get("error")})
	}
}

func updateSettingHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PostFormValue("key")
		if _, err := svc.UpdateSetting(r.Context(), key, r.PostFormValue("value")); err != nil {
			handleMutationError(w, r, "/admin/config", err, logger)
			return
		}
		logger.Info("setting updated", zap.String("key", key))
		redirect(w, r, "/admin/config?notice="+url.QueryEscape("Saved "+key))
	}
}

type auditPage struct {
	Page  *domain.PageResponse[domain.AuditLog]
	Query domain.AuditQuery
	Prev  string
	Next  string
}

func auditHandler(svc *service.AdminService, views *view.Renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := domain.AuditQuery{
			Page:   queryInt(r, "page", 0),
			Size:   service.DefaultPageSize,
			UserID: queryInt64(r, "userId"),
			Action: r.URL.Query().Get("action"),
			Entity: r.URL.Query().Get("entity"),
		}

		page := views.Begin(w, "audit", layout(r, "Audit Logs", "audit"))
		logs, err := svc.Audit(r.Context(), q)
		if err != nil {
			handlePageError(r, page, err, logger)
			return
		}
		data := auditPage{Page: logs, Query: q}
		data.Prev, data.Next = pageLinks(r, logs.Number, logs.TotalPages)
		page.Content(data)
	}
}
