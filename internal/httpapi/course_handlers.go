package httpapi

import "net/http"

func (a *API) createCourse(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	var req courseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.campus.CreateCourse(r.Context(), token, req.Title, req.Code)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCourseView(c))
}

func (a *API) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := a.campus.ListCourses(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]courseView, 0, len(courses))
	for _, c := range courses {
		out = append(out, toCourseView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": out})
}

func (a *API) getCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.campus.GetCourse(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCourseView(c))
}

func (a *API) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	if err := a.campus.DeleteCourse(r.Context(), token, id); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
