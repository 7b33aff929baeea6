package handler

import (
	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

func toUserResponse(u *domain.User) userResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		PhoneNumber: u.PhoneNumber,
		Roles:       roles,
		PhotoURL:    u.PhotoURL,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toListResponse(page *ports.UserPage) listUsersResponse {
	items := make([]userResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toUserResponse(&page.Items[i]))
	}
	return listUsersResponse{
		Data: items,
		Pagination: paginationResponse{
			Total:      page.Total,
			Page:       page.Page,
			PerPage:    page.PerPage,
			TotalPages: page.TotalPages,
		},
	}
}
