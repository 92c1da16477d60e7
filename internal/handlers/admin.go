// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"inkpress/internal/blog"
	"inkpress/internal/models"
	"inkpress/internal/render"
)

// ContentAdmin is the admin content workflow. *blog.Admin satisfies it.
type ContentAdmin interface {
	Stats(ctx context.Context) (*models.Stats, error)
	ListPosts(ctx context.Context, page blog.Page) (*blog.PostPage, error)
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	CreatePost(ctx context.Context, in blog.PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, patch blog.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, in blog.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in blog.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// Moderator is the admin side of the comment workflow. *blog.Comments
// satisfies it.
type Moderator interface {
	List(ctx context.Context, filter blog.CommentFilter, page blog.Page) (*blog.CommentPage, error)
	Moderate(ctx context.Context, id uuid.UUID, target models.CommentStatus) (*models.Comment, error)
	Reply(ctx context.Context, id uuid.UUID, text string) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Admin groups the authenticated admin console handlers.
type Admin struct {
	pages
	content  ContentAdmin
	comments Moderator
}

// NewAdmin creates a new Admin handler group.
func NewAdmin(renderer *render.Renderer, content ContentAdmin, comments Moderator) *Admin {
	return &Admin{
		pages:    pages{renderer: renderer},
		content:  content,
		comments: comments,
	}
}

// Dashboard renders the five content counts.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := a.content.Stats(r.Context())
	if err != nil {
		a.serverError(w, r, "load stats", err)
		return
	}

	a.renderer.Page(w, r, "admin/dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Flashes: popFlash(w, r),
		Data:    map[string]any{"Stats": stats},
	})
}

// --- Posts ---

// postForm is the posted state of the post editor.
type postForm struct {
	Title      string
	Content    string
	Excerpt    string
	Published  bool
	CategoryID string
}

func readPostForm(r *http.Request) postForm {
	return postForm{
		Title:      r.FormValue("title"),
		Content:    r.FormValue("content"),
		Excerpt:    r.FormValue("excerpt"),
		Published:  r.FormValue("published") != "",
		CategoryID: strings.TrimSpace(r.FormValue("category_id")),
	}
}

// category parses the selected category; an empty selection is nil.
func (f postForm) category() (*uuid.UUID, error) {
	if f.CategoryID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(f.CategoryID)
	if err != nil {
		return nil, &blog.ValidationError{Field: "category_id", Message: "does not exist"}
	}
	return &id, nil
}

func formFromPost(p *models.Post) postForm {
	f := postForm{Title: p.Title, Content: p.Content, Excerpt: p.Excerpt, Published: p.Published}
	if p.CategoryID != nil {
		f.CategoryID = p.CategoryID.String()
	}
	return f
}

// PostsList renders one page of all posts, drafts included.
func (a *Admin) PostsList(w http.ResponseWriter, r *http.Request) {
	n := pageParam(r)
	page, err := a.content.ListPosts(r.Context(), blog.PageNumber(n))
	if err != nil {
		a.serverError(w, r, "list posts", err)
		return
	}

	a.renderer.Page(w, r, "admin/posts_list", &render.PageData{
		Title:   "Posts",
		Section: "posts",
		Flashes: popFlash(w, r),
		Data: map[string]any{
			"Posts":   page.Posts,
			"Page":    n,
			"HasMore": page.HasMore,
		},
	})
}

// PostNew renders an empty post editor.
func (a *Admin) PostNew(w http.ResponseWriter, r *http.Request) {
	a.renderPostForm(w, r, http.StatusOK, nil, postForm{}, "")
}

// PostCreate validates and stores a new post.
func (a *Admin) PostCreate(w http.ResponseWriter, r *http.Request) {
	form := readPostForm(r)

	categoryID, err := form.category()
	if err == nil {
		_, err = a.content.CreatePost(r.Context(), blog.PostInput{
			Title:      form.Title,
			Content:    form.Content,
			Excerpt:    form.Excerpt,
			Published:  form.Published,
			CategoryID: categoryID,
		})
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			a.renderPostForm(w, r, http.StatusUnprocessableEntity, nil, form, msg)
			return
		}
		a.serverError(w, r, "create post", err)
		return
	}

	setFlash(w, "success", "Post created.")
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

// PostEdit renders the editor for an existing post.
func (a *Admin) PostEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	post, err := a.content.GetPost(r.Context(), id)
	if err != nil {
		a.fail(w, r, "load post", err)
		return
	}

	a.renderPostForm(w, r, http.StatusOK, post, formFromPost(post), "")
}

// PostUpdate applies the editor form to an existing post. Every field is
// submitted, so the patch sets all of them; title and content changes
// regenerate the slug and read time.
func (a *Admin) PostUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	form := readPostForm(r)

	categoryID, err := form.category()
	if err == nil {
		_, err = a.content.UpdatePost(r.Context(), id, blog.PostPatch{
			Title:       &form.Title,
			Content:     &form.Content,
			Excerpt:     &form.Excerpt,
			Published:   &form.Published,
			CategoryID:  categoryID,
			SetCategory: true,
		})
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			post, lookupErr := a.content.GetPost(r.Context(), id)
			if lookupErr != nil {
				a.fail(w, r, "load post", lookupErr)
				return
			}
			a.renderPostForm(w, r, http.StatusUnprocessableEntity, post, form, msg)
			return
		}
		a.fail(w, r, "update post", err)
		return
	}

	setFlash(w, "success", "Post saved.")
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

// PostDelete removes a post and its comments.
func (a *Admin) PostDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	if err := a.content.DeletePost(r.Context(), id); err != nil {
		a.fail(w, r, "delete post", err)
		return
	}

	setFlash(w, "success", "Post deleted.")
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

func (a *Admin) renderPostForm(w http.ResponseWriter, r *http.Request, status int, post *models.Post, form postForm, errMsg string) {
	categories, err := a.content.ListCategories(r.Context())
	if err != nil {
		a.serverError(w, r, "list categories", err)
		return
	}

	title := "New Post"
	if post != nil {
		title = "Edit Post"
	}
	a.renderer.PageStatus(w, r, status, "admin/post_form", &render.PageData{
		Title:   title,
		Section: "posts",
		Data: map[string]any{
			"Post":       post,
			"Form":       form,
			"Categories": categories,
			"Error":      errMsg,
		},
	})
}

// --- Categories ---

// categoryForm is the submitted category. EditID names the row an update
// came from and is empty for the creation form.
type categoryForm struct {
	EditID      string
	Name        string
	Slug        string
	Description string
}

func readCategoryForm(r *http.Request) categoryForm {
	return categoryForm{
		Name:        r.FormValue("name"),
		Slug:        r.FormValue("slug"),
		Description: r.FormValue("description"),
	}
}

func (f categoryForm) input() blog.CategoryInput {
	return blog.CategoryInput{Name: f.Name, Slug: f.Slug, Description: f.Description}
}

// CategoriesList renders all categories with the creation form.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	a.renderCategories(w, r, http.StatusOK, categoryForm{}, "")
}

// CategoryCreate stores a new category.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	form := readCategoryForm(r)

	if _, err := a.content.CreateCategory(r.Context(), form.input()); err != nil {
		if msg, ok := validationMessage(err); ok {
			a.renderCategories(w, r, http.StatusUnprocessableEntity, form, msg)
			return
		}
		a.serverError(w, r, "create category", err)
		return
	}

	setFlash(w, "success", "Category created.")
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// CategoryUpdate renames a category or changes its slug or description.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	form := readCategoryForm(r)
	form.EditID = id.String()

	if _, err := a.content.UpdateCategory(r.Context(), id, form.input()); err != nil {
		if msg, ok := validationMessage(err); ok {
			a.renderCategories(w, r, http.StatusUnprocessableEntity, form, msg)
			return
		}
		a.fail(w, r, "update category", err)
		return
	}

	setFlash(w, "success", "Category saved.")
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// CategoryDelete removes a category that no post references.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	err := a.content.DeleteCategory(r.Context(), id)
	switch {
	case errors.Is(err, blog.ErrCategoryInUse):
		a.renderCategories(w, r, http.StatusConflict, categoryForm{},
			"This category still has posts. Move or delete them before deleting the category.")
		return
	case err != nil:
		a.fail(w, r, "delete category", err)
		return
	}

	setFlash(w, "success", "Category deleted.")
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

func (a *Admin) renderCategories(w http.ResponseWriter, r *http.Request, status int, form categoryForm, errMsg string) {
	categories, err := a.content.ListCategories(r.Context())
	if err != nil {
		a.serverError(w, r, "list categories", err)
		return
	}

	data := map[string]any{
		"Categories": categories,
		"Form":       form,
		"Error":      errMsg,
	}
	if form.EditID != "" {
		data["Form"] = categoryForm{}
		data["Edit"] = &form
	}

	a.renderer.PageStatus(w, r, status, "admin/categories", &render.PageData{
		Title:   "Categories",
		Section: "categories",
		Flashes: popFlash(w, r),
		Data:    data,
	})
}

// --- Comments ---

var commentFilters = []string{
	string(models.CommentPending),
	string(models.CommentApproved),
	string(models.CommentRejected),
	string(blog.FilterAll),
}

// CommentsList renders the moderation queue. ?status= selects pending
// (default), approved, rejected or all.
func (a *Admin) CommentsList(w http.ResponseWriter, r *http.Request) {
	filter, err := blog.ParseCommentFilter(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, "Invalid status filter", http.StatusBadRequest)
		return
	}

	n := pageParam(r)
	page, err := a.comments.List(r.Context(), filter, blog.PageNumber(n))
	if err != nil {
		a.serverError(w, r, "list comments", err)
		return
	}

	a.renderer.Page(w, r, "admin/comments", &render.PageData{
		Title:   "Comments",
		Section: "comments",
		Flashes: popFlash(w, r),
		Data: map[string]any{
			"Comments": page.Comments,
			"Filter":   string(filter),
			"Filters":  commentFilters,
			"Page":     n,
			"HasMore":  page.HasMore,
		},
	})
}

// CommentApprove moves a pending comment to approved.
func (a *Admin) CommentApprove(w http.ResponseWriter, r *http.Request) {
	a.moderate(w, r, models.CommentApproved)
}

// CommentReject moves a pending comment to rejected.
func (a *Admin) CommentReject(w http.ResponseWriter, r *http.Request) {
	a.moderate(w, r, models.CommentRejected)
}

func (a *Admin) moderate(w http.ResponseWriter, r *http.Request, target models.CommentStatus) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	_, err := a.comments.Moderate(r.Context(), id, target)
	switch {
	case errors.Is(err, blog.ErrInvalidTransition):
		setFlash(w, "error", "That comment has already been moderated.")
	case err != nil:
		a.fail(w, r, "moderate comment", err)
		return
	default:
		setFlash(w, "success", "Comment "+string(target)+".")
	}

	http.Redirect(w, r, commentsReturn(r), http.StatusSeeOther)
}

// CommentReply sets or clears the admin reply on a comment.
func (a *Admin) CommentReply(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	if _, err := a.comments.Reply(r.Context(), id, r.FormValue("reply")); err != nil {
		if msg, ok := validationMessage(err); ok {
			setFlash(w, "error", msg)
			http.Redirect(w, r, commentsReturn(r), http.StatusSeeOther)
			return
		}
		a.fail(w, r, "reply to comment", err)
		return
	}

	setFlash(w, "success", "Reply saved.")
	http.Redirect(w, r, commentsReturn(r), http.StatusSeeOther)
}

// CommentDelete removes a comment in any state.
func (a *Admin) CommentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	if err := a.comments.Delete(r.Context(), id); err != nil {
		a.fail(w, r, "delete comment", err)
		return
	}

	setFlash(w, "success", "Comment deleted.")
	http.Redirect(w, r, commentsReturn(r), http.StatusSeeOther)
}

// commentsReturn sends moderation actions back to the list the admin came
// from when the Referer is that list, otherwise to the pending queue.
func commentsReturn(r *http.Request) string {
	const fallback = "/admin/comments"
	ref := r.Referer()
	if i := strings.Index(ref, fallback); i >= 0 {
		return ref[i:]
	}
	return fallback
}
