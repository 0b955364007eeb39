// Package messages holds the user-facing text catalog and locale negotiation.
package messages

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Key identifies a catalog entry.
type Key string

const (
	FieldRequired      Key = "field_required"
	FieldTooLong       Key = "field_too_long"
	UsernameTaken      Key = "username_taken"
	UsernameChars      Key = "username_chars"
	EmailInvalid       Key = "email_invalid"
	EmailTaken         Key = "email_taken"
	AvatarExtension    Key = "avatar_extension"
	AvatarTooLarge     Key = "avatar_too_large"
	PasswordMismatch   Key = "password_mismatch"
	InvalidCredentials Key = "invalid_credentials"
	NoSelection        Key = "no_selection"
	NotFound           Key = "not_found"
	InternalError      Key = "internal_error"
	TooManyRequests    Key = "too_many_requests"
	RequestRejected    Key = "request_rejected"
)

// Page text.
const (
	SiteName            Key = "site_name"
	NavPolls            Key = "nav_polls"
	NavNewPoll          Key = "nav_new_poll"
	NavProfile          Key = "nav_profile"
	NavLogin            Key = "nav_login"
	NavRegister         Key = "nav_register"
	NavLogout           Key = "nav_logout"
	TitleLogin          Key = "title_login"
	TitleRegister       Key = "title_register"
	TitleProfile        Key = "title_profile"
	TitleEditProfile    Key = "title_edit_profile"
	TitleDeleteProfile  Key = "title_delete_profile"
	TitleLoggedOut      Key = "title_logged_out"
	TitleNewPoll        Key = "title_new_poll"
	TitleResults        Key = "title_results"
	TitleError          Key = "title_error"
	LabelUsername       Key = "label_username"
	LabelEmail          Key = "label_email"
	LabelAvatar         Key = "label_avatar"
	LabelPassword       Key = "label_password"
	LabelPasswordRepeat Key = "label_password_repeat"
	LabelQuestion       Key = "label_question"
	LabelChoice         Key = "label_choice"
	ButtonLogin         Key = "button_login"
	ButtonRegister      Key = "button_register"
	ButtonSave          Key = "button_save"
	ButtonVote          Key = "button_vote"
	ButtonCreate        Key = "button_create"
	ButtonDelete        Key = "button_delete"
	NoPolls             Key = "no_polls"
	BadgeNew            Key = "badge_new"
	LinkResults         Key = "link_results"
	LinkVote            Key = "link_vote"
	LinkEditProfile     Key = "link_edit_profile"
	LinkDeleteProfile   Key = "link_delete_profile"
	DeleteConfirm       Key = "delete_confirm"
	LoggedOut           Key = "logged_out"
	TotalVotes          Key = "total_votes"
	ChoiceVotes         Key = "choice_votes"
	LiveUpdates         Key = "live_updates"
)

const (
	LocaleRU = "ru"
	LocaleEN = "en"
)

var builtin = map[string]map[Key]string{
	LocaleRU: {
		FieldRequired:      "Обязательное поле.",
		FieldTooLong:       "Убедитесь, что это значение содержит не более %d символов.",
		UsernameTaken:      "Данное имя пользователя уже занято",
		UsernameChars:      "Имя пользователя может содержать только латиницу и дефисы",
		EmailInvalid:       "Адрес электронной почты не валиден",
		EmailTaken:         "Пользователь с таким адресом электронной почты уже существует",
		AvatarExtension:    "Допустимые расширения файла: %s",
		AvatarTooLarge:     "Файл слишком большой. Размер не должен превышать %d МБ",
		PasswordMismatch:   "Пароли не совпадают",
		InvalidCredentials: "Неверное имя пользователя или пароль.",
		NoSelection:        "Вы не сделали выбор.",
		NotFound:           "Страница не найдена.",
		InternalError:      "Внутренняя ошибка сервера.",
		TooManyRequests:    "Слишком много запросов, попробуйте позже.",
		RequestRejected:    "Запрос отклонён.",

		SiteName:            "Опросы",
		NavPolls:            "Все опросы",
		NavNewPoll:          "Создать опрос",
		NavProfile:          "Профиль",
		NavLogin:            "Войти",
		NavRegister:         "Регистрация",
		NavLogout:           "Выйти",
		TitleLogin:          "Вход",
		TitleRegister:       "Регистрация",
		TitleProfile:        "Профиль пользователя %s",
		TitleEditProfile:    "Редактирование профиля",
		TitleDeleteProfile:  "Удаление профиля",
		TitleLoggedOut:      "Выход",
		TitleNewPoll:        "Новый опрос",
		TitleResults:        "Результаты",
		TitleError:          "Ошибка %d",
		LabelUsername:       "Имя пользователя",
		LabelEmail:          "Электронная почта",
		LabelAvatar:         "Аватар",
		LabelPassword:       "Пароль",
		LabelPasswordRepeat: "Повторите пароль",
		LabelQuestion:       "Вопрос",
		LabelChoice:         "Вариант %d",
		ButtonLogin:         "Войти",
		ButtonRegister:      "Зарегистрироваться",
		ButtonSave:          "Сохранить",
		ButtonVote:          "Голосовать",
		ButtonCreate:        "Создать",
		ButtonDelete:        "Удалить",
		NoPolls:             "Опросов пока нет.",
		BadgeNew:            "новый",
		LinkResults:         "Результаты",
		LinkVote:            "Голосовать ещё раз?",
		LinkEditProfile:     "Редактировать",
		LinkDeleteProfile:   "Удалить профиль",
		DeleteConfirm:       "Вы уверены, что хотите удалить профиль? Это действие необратимо.",
		LoggedOut:           "Вы вышли из системы.",
		TotalVotes:          "Всего голосов: %d",
		ChoiceVotes:         "%d голос(ов), %d%%",
		LiveUpdates:         "Результаты обновляются автоматически.",
	},
	LocaleEN: {
		FieldRequired:      "This field is required.",
		FieldTooLong:       "Ensure this value has at most %d characters.",
		UsernameTaken:      "This username is already taken",
		UsernameChars:      "Username may contain only latin letters and hyphens",
		EmailInvalid:       "Email address is not valid",
		EmailTaken:         "A user with this email address already exists",
		AvatarExtension:    "Allowed file extensions: %s",
		AvatarTooLarge:     "File is too large. Size must not exceed %d MB",
		PasswordMismatch:   "Passwords do not match",
		InvalidCredentials: "Invalid username or password.",
		NoSelection:        "You did not make a selection.",
		NotFound:           "Page not found.",
		InternalError:      "Internal server error.",
		TooManyRequests:    "Too many requests, please try again later.",
		RequestRejected:    "The request was rejected.",

		SiteName:            "Polls",
		NavPolls:            "All polls",
		NavNewPoll:          "New poll",
		NavProfile:          "Profile",
		NavLogin:            "Log in",
		NavRegister:         "Sign up",
		NavLogout:           "Log out",
		TitleLogin:          "Log in",
		TitleRegister:       "Sign up",
		TitleProfile:        "Profile of %s",
		TitleEditProfile:    "Edit profile",
		TitleDeleteProfile:  "Delete profile",
		TitleLoggedOut:      "Logged out",
		TitleNewPoll:        "New poll",
		TitleResults:        "Results",
		TitleError:          "Error %d",
		LabelUsername:       "Username",
		LabelEmail:          "Email",
		LabelAvatar:         "Avatar",
		LabelPassword:       "Password",
		LabelPasswordRepeat: "Repeat password",
		LabelQuestion:       "Question",
		LabelChoice:         "Choice %d",
		ButtonLogin:         "Log in",
		ButtonRegister:      "Sign up",
		ButtonSave:          "Save",
		ButtonVote:          "Vote",
		ButtonCreate:        "Create",
		ButtonDelete:        "Delete",
		NoPolls:             "No polls are available.",
		BadgeNew:            "new",
		LinkResults:         "Results",
		LinkVote:            "Vote again?",
		LinkEditProfile:     "Edit",
		LinkDeleteProfile:   "Delete profile",
		DeleteConfirm:       "Are you sure you want to delete your profile? This cannot be undone.",
		LoggedOut:           "You have been logged out.",
		TotalVotes:          "Total votes: %d",
		ChoiceVotes:         "%d vote(s), %d%%",
		LiveUpdates:         "Results update live.",
	},
}

// Catalog resolves keys to localized text.
type Catalog struct {
	fallback string
	texts    map[string]map[Key]string
	matcher  language.Matcher
	tags     []string
}

// NewCatalog returns the built-in catalog with the given fallback locale.
// An unknown fallback resolves to Russian.
func NewCatalog(fallback string) *Catalog {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if _, ok := builtin[fallback]; !ok {
		fallback = LocaleRU
	}

	// The fallback goes first so the matcher prefers it on ties.
	tags := []string{fallback}
	for locale := range builtin {
		if locale != fallback {
			tags = append(tags, locale)
		}
	}
	langTags := make([]language.Tag, 0, len(tags))
	for _, t := range tags {
		langTags = append(langTags, language.Make(t))
	}

	return &Catalog{
		fallback: fallback,
		texts:    builtin,
		matcher:  language.NewMatcher(langTags),
		tags:     tags,
	}
}

// Fallback returns the default locale.
func (c *Catalog) Fallback() string {
	return c.fallback
}

// Supported reports whether locale has a catalog.
func (c *Catalog) Supported(locale string) bool {
	_, ok := c.texts[strings.ToLower(locale)]
	return ok
}

// Get formats the entry for key in locale. Missing entries fall back to the
// default locale and then to the key itself.
func (c *Catalog) Get(locale string, key Key, args ...any) string {
	text, ok := c.texts[strings.ToLower(locale)][key]
	if !ok {
		text, ok = c.texts[c.fallback][key]
	}
	if !ok {
		return string(key)
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// Negotiate picks a supported locale. An explicit preference (query parameter
// or cookie) wins over the Accept-Language header.
func (c *Catalog) Negotiate(preferred, acceptLanguage string) string {
	if p := strings.ToLower(strings.TrimSpace(preferred)); c.Supported(p) {
		return p
	}
	if strings.TrimSpace(acceptLanguage) == "" {
		return c.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.fallback
	}
	_, index, confidence := c.matcher.Match(tags...)
	if confidence == language.No {
		return c.fallback
	}
	return c.tags[index]
}
